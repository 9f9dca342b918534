package notebook

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ascribe/internal/bible"
)

var (
	ch0 = bible.ChapterIndex{Book: 0, Number: 0}
	ch1 = bible.ChapterIndex{Book: 0, Number: 1}

	testSource = bible.ViewSource{
		ch0: {3, 2, 4},
		ch1: {5},
	}
)

func loc(ch bible.ChapterIndex, vs, ws, ve, we int) bible.ReferenceLocation {
	return bible.ReferenceLocation{
		Chapter: ch,
		Range:   bible.WordRange{VerseStart: vs, WordStart: ws, VerseEnd: ve, WordEnd: we},
	}
}

func testNote(id string, locs ...bible.ReferenceLocation) NoteData {
	return NoteData{ID: id, Text: "text of " + id, Locations: locs, SourceType: SourceMarkdown}
}

func TestNew_IsEmpty(t *testing.T) {
	nb := New()
	assert.True(t, nb.IsEmpty())

	nb.FavoriteVerses[ch0] = 2
	assert.False(t, nb.IsEmpty())
}

func TestAddNote_AttachesToWords(t *testing.T) {
	nb := New()
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch0, 1, 1, 2, 0)), testSource))

	assert.True(t, nb.HasNote("n1"))
	for _, idx := range []int{4, 5} {
		w, ok := nb.WordAnnotationsAt(ch0, idx)
		require.True(t, ok, "word %d", idx)
		assert.Equal(t, []string{"n1"}, w.Notes)
	}
	_, ok := nb.WordAnnotationsAt(ch0, 3)
	assert.False(t, ok)
}

func TestAddNote_Idempotent(t *testing.T) {
	nb := New()
	note := testNote("n1", loc(ch0, 0, 0, 0, 2))
	require.NoError(t, nb.AddNote(note, testSource))
	require.NoError(t, nb.AddNote(note, testSource))

	w, ok := nb.WordAnnotationsAt(ch0, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"n1"}, w.Notes)
	assert.Len(t, nb.Notes, 1)
}

func TestAddNote_OutOfRangeLeavesNotebookUntouched(t *testing.T) {
	nb := New()
	note := testNote("n1", loc(ch0, 0, 0, 0, 1), loc(ch1, 0, 0, 0, 9))

	err := nb.AddNote(note, testSource)
	require.Error(t, err)
	assert.ErrorIs(t, err, bible.ErrOutOfRange)
	assert.True(t, nb.IsEmpty())
}

func TestRemoveNote(t *testing.T) {
	nb := New()
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch0, 0, 0, 0, 1)), testSource))
	require.NoError(t, nb.AddNote(testNote("n2", loc(ch0, 0, 1, 0, 2)), testSource))

	nb.RemoveNote("n1")

	assert.False(t, nb.HasNote("n1"))
	_, ok := nb.WordAnnotationsAt(ch0, 0)
	assert.False(t, ok, "word only carrying n1 should be pruned")
	w, ok := nb.WordAnnotationsAt(ch0, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"n2"}, w.Notes)
}

func TestAddNote_ReplacingDetachesOldWords(t *testing.T) {
	nb := New()
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch0, 0, 0, 0, 1)), testSource))
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch1, 0, 0, 0, 0)), testSource))

	_, ok := nb.WordAnnotationsAt(ch0, 0)
	assert.False(t, ok, "old location should be detached")
	w, ok := nb.WordAnnotationsAt(ch1, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"n1"}, w.Notes)

	nb.RemoveNote("n1")
	assert.True(t, nb.IsEmpty())
}

func TestRemoveNote_MissingIsNoop(t *testing.T) {
	nb := New()
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch0, 0, 0, 0, 0)), testSource))
	before := nb.Clone()

	nb.RemoveNote("nope")
	assert.Equal(t, before, nb)
}

func TestUpdateNote_MovesLocations(t *testing.T) {
	nb := New()
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch0, 0, 0, 0, 1)), testSource))

	moved := testNote("n1", loc(ch1, 0, 3, 0, 4))
	moved.Text = "edited"
	require.NoError(t, nb.UpdateNote(moved, testSource))

	assert.Empty(t, nb.Annotations[ch0])
	w, ok := nb.WordAnnotationsAt(ch1, 3)
	require.True(t, ok)
	assert.Equal(t, []string{"n1"}, w.Notes)

	got, ok := nb.Note("n1")
	require.True(t, ok)
	assert.Equal(t, "edited", got.Text)
}

func TestUpdateNote_FailureKeepsOldNote(t *testing.T) {
	nb := New()
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch0, 0, 0, 0, 1)), testSource))
	before := nb.Clone()

	err := nb.UpdateNote(testNote("n1", loc(bible.ChapterIndex{Book: 9}, 0, 0, 0, 0)), testSource)
	require.Error(t, err)
	assert.Equal(t, before, nb)
}

func TestHighlightLifecycle(t *testing.T) {
	nb := New()
	nb.HighlightCategories["c1"] = HighlightCategory{ID: "c1", Name: "Promises"}
	nb.HighlightCategories["c2"] = HighlightCategory{ID: "c2", Name: "Commands"}

	require.NoError(t, nb.HighlightLocation(testSource, "c1", loc(ch0, 0, 2, 1, 0)))
	require.NoError(t, nb.HighlightLocation(testSource, "c1", loc(ch0, 0, 2, 1, 0)))
	require.NoError(t, nb.HighlightLocation(testSource, "c2", loc(ch0, 1, 0, 1, 0)))

	w, _ := nb.WordAnnotationsAt(ch0, 3)
	assert.Equal(t, []string{"c1", "c2"}, w.Highlights)
	w, _ = nb.WordAnnotationsAt(ch0, 2)
	assert.Equal(t, []string{"c1"}, w.Highlights)

	delete(nb.HighlightCategories, "c1")
	nb.RefreshHighlights()

	w, _ = nb.WordAnnotationsAt(ch0, 3)
	assert.Equal(t, []string{"c2"}, w.Highlights)
	_, ok := nb.WordAnnotationsAt(ch0, 2)
	assert.False(t, ok)
}

func TestEraseLocationHighlight(t *testing.T) {
	nb := New()
	require.NoError(t, nb.HighlightLocation(testSource, "c1", loc(ch0, 2, 0, 2, 3)))

	require.NoError(t, nb.EraseLocationHighlight(testSource, "c1", loc(ch0, 2, 1, 2, 2)))
	require.NoError(t, nb.EraseLocationHighlight(testSource, "c1", loc(ch1, 0, 0, 0, 4)))

	var left []int
	for idx := range nb.Annotations[ch0] {
		left = append(left, idx)
	}
	assert.ElementsMatch(t, []int{5, 8}, left)
}

func TestClone_IsDeep(t *testing.T) {
	nb := New()
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch0, 0, 0, 0, 0)), testSource))
	nb.SectionHeadings[ch0] = map[int]string{0: "Creation"}

	clone := nb.Clone()
	assert.Equal(t, nb, clone)

	clone.RemoveNote("n1")
	clone.SectionHeadings[ch0][0] = "changed"

	assert.True(t, nb.HasNote("n1"))
	assert.Equal(t, "Creation", nb.SectionHeadings[ch0][0])
}

func TestNotebookJSON(t *testing.T) {
	nb := New()
	nb.HighlightCategories["c1"] = HighlightCategory{ID: "c1", Color: Color{R: 255, G: 200}, SourceType: SourceHTML}
	require.NoError(t, nb.AddNote(testNote("n1", loc(ch1, 0, 0, 0, 1)), testSource))
	require.NoError(t, nb.HighlightLocation(testSource, "c1", loc(ch0, 0, 0, 0, 0)))
	nb.FavoriteVerses[ch1] = 0

	data, err := json.Marshal(nb)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"annotations":[[{"book":0,"number":0},`)

	decoded := &Notebook{}
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, nb, decoded)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 255, G: 128, B: 0}, c)
	assert.Equal(t, "#ff8000", c.Hex())

	for _, bad := range []string{"ff8000", "#ff80", "#gg0000", ""} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestNoteData_Equal(t *testing.T) {
	a := testNote("n1", loc(ch0, 0, 0, 0, 1))
	b := testNote("n1", loc(ch0, 0, 0, 0, 1))
	assert.True(t, a.Equal(b))

	b.Locations = append(b.Locations, loc(ch1, 0, 0, 0, 0))
	assert.False(t, a.Equal(b))
}

func TestMap_GetOrInsert(t *testing.T) {
	m := Map{}
	nb := m.GetOrInsert("study")
	nb.FavoriteVerses[ch0] = 1

	assert.Same(t, nb, m.GetOrInsert("study"))
	m.GetOrInsert("devotional")
	assert.Equal(t, []string{"devotional", "study"}, m.Names())

	clone := m.Clone()
	clone["study"].FavoriteVerses[ch0] = 7
	assert.Equal(t, 1, m["study"].FavoriteVerses[ch0])
}
