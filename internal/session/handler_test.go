package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/notebook"
	"github.com/roach88/ascribe/internal/testutil"
)

type testResolver map[string]bible.ChapterSource

func (r testResolver) Lookup(name string) (bible.ChapterSource, bool) {
	src, ok := r[name]
	return src, ok
}

var (
	gen1     = bible.ChapterIndex{}
	resolver = testResolver{"KJV": bible.ViewSource{gen1: {3, 2, 4}}}
)

func loc(vs, ws, ve, we int) bible.ReferenceLocation {
	return bible.ReferenceLocation{
		Chapter: gen1,
		Range:   bible.WordRange{VerseStart: vs, WordStart: ws, VerseEnd: ve, WordEnd: we},
	}
}

func createNote(id string) action.Action {
	return action.Action{Notebook: "study", BibleName: "KJV", Type: action.CreateNote{Note: notebook.NoteData{
		ID: id, Text: "note " + id, Locations: []bible.ReferenceLocation{loc(0, 0, 0, 1)},
	}}}
}

func createHighlight(id string) action.Action {
	return action.Action{Notebook: "study", BibleName: "KJV", Type: action.CreateHighlight{
		Category: notebook.HighlightCategory{ID: id, Name: id},
	}}
}

func newHandler(t *testing.T, prefix string, opts ...Option) (*Handler, *testutil.DeterministicClock, *testutil.SequentialIDs) {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	ids := testutil.NewSequentialIDs(prefix)
	opts = append([]Option{WithClock(clock), WithIDGenerator(ids)}, opts...)
	h, err := New(history.History{}, resolver, opts...)
	require.NoError(t, err)
	return h, clock, ids
}

func TestPushAction_AppliesImmediately(t *testing.T) {
	h, _, _ := newHandler(t, "a")

	require.NoError(t, h.PushAction(createNote("n1")))

	nb, ok := h.Notebook("study")
	require.True(t, ok)
	assert.True(t, nb.HasNote("n1"))
	assert.Equal(t, 1, h.Pending())
}

func TestCommitGroup(t *testing.T) {
	h, _, ids := newHandler(t, "a")

	h.CommitGroup()
	assert.Equal(t, 0, h.History().Len(), "committing nothing is a no-op")

	require.NoError(t, h.PushAction(createNote("n1")))
	require.NoError(t, h.PushAction(createHighlight("h1")))
	h.CommitGroup()

	assert.Equal(t, 0, h.Pending())
	hist := h.History()
	require.Equal(t, 1, hist.Len())
	g := hist.Groups()[0]
	assert.Equal(t, ids.Peek(1), g.ID)
	assert.Len(t, g.Actions, 2)
	// Two pushes read the clock before the commit does.
	assert.Equal(t, testutil.Epoch.Add(2*time.Second), g.Time)
}

func TestHistory_CommitsFirst(t *testing.T) {
	h, _, _ := newHandler(t, "a")
	require.NoError(t, h.PushAction(createNote("n1")))

	hist := h.History()
	assert.Equal(t, 1, hist.Len())
	assert.Equal(t, 0, h.Pending())
}

func TestPushAction_RejectsInvalid(t *testing.T) {
	h, _, _ := newHandler(t, "a")

	bad := action.Action{Notebook: "study", BibleName: "KJV", Type: action.Highlight{
		HighlightID: "h1", Location: loc(2, 0, 1, 0),
	}}
	err := h.PushAction(bad)
	assert.ErrorIs(t, err, action.ErrInvalidAction)
	assert.ErrorIs(t, err, bible.ErrInvalidRange)
	assert.Equal(t, 0, h.Pending())
}

func TestPushAction_FailedApplyIsNotBuffered(t *testing.T) {
	h, _, _ := newHandler(t, "a")

	missing := createNote("n1")
	missing.BibleName = "NIV"
	err := h.PushAction(missing)
	assert.True(t, action.IsMissingBible(err))

	outOfRange := action.Action{Notebook: "study", BibleName: "KJV", Type: action.Highlight{
		HighlightID: "h1", Location: loc(0, 0, 5, 0),
	}}
	err = h.PushAction(outOfRange)
	assert.True(t, action.IsOutOfRange(err))

	assert.Equal(t, 0, h.Pending())
	_, ok := h.Notebook("study")
	assert.False(t, ok)
}

func TestGroupWindow_CommitsStaleGroup(t *testing.T) {
	h, clock, _ := newHandler(t, "a", WithGroupWindow(time.Minute))

	require.NoError(t, h.PushAction(createNote("n1")))
	require.NoError(t, h.PushAction(createNote("n2")))
	assert.Equal(t, 2, h.Pending())

	clock.Advance(2 * time.Minute)
	require.NoError(t, h.PushAction(createNote("n3")))
	assert.Equal(t, 1, h.Pending())

	hist := h.History()
	require.Equal(t, 2, hist.Len())
	assert.Len(t, hist.Groups()[0].Actions, 2)
	assert.Len(t, hist.Groups()[1].Actions, 1)
}

func TestGetOrInsertNotebook_ReturnsCopy(t *testing.T) {
	h, _, _ := newHandler(t, "a")

	nb := h.GetOrInsertNotebook("devotional")
	assert.True(t, nb.IsEmpty())
	nb.FavoriteVerses[gen1] = 3

	again := h.GetOrInsertNotebook("devotional")
	assert.Empty(t, again.FavoriteVerses)

	var names []string
	h.View(func(m notebook.Map) { names = m.Names() })
	assert.Equal(t, []string{"devotional"}, names)
}

func TestNew_ReplaysHistory(t *testing.T) {
	src, _, _ := newHandler(t, "a")
	require.NoError(t, src.PushAction(createNote("n1")))

	h, err := New(src.History(), resolver)
	require.NoError(t, err)
	nb, ok := h.Notebook("study")
	require.True(t, ok)
	assert.True(t, nb.HasNote("n1"))

	_, err = New(src.History(), testResolver{})
	assert.True(t, action.IsMissingBible(err))
}

func TestMerge_TwoDevices(t *testing.T) {
	a, _, _ := newHandler(t, "device-a")
	b, clockB, _ := newHandler(t, "device-b")
	clockB.Advance(time.Hour)

	require.NoError(t, a.PushAction(createNote("n1")))
	require.NoError(t, b.PushAction(createHighlight("h1")))

	histA, histB := a.History(), b.History()

	mergedA, err := a.Merge(histB)
	require.NoError(t, err)
	mergedB, err := b.Merge(histA)
	require.NoError(t, err)
	assert.Equal(t, mergedA.IDs(), mergedB.IDs())

	nbA, _ := a.Notebook("study")
	nbB, _ := b.Notebook("study")
	assert.Equal(t, nbA, nbB)
	assert.True(t, nbA.HasNote("n1"))
	_, ok := nbA.Category("h1")
	assert.True(t, ok)
}

func TestMerge_FailureKeepsState(t *testing.T) {
	h, _, _ := newHandler(t, "a")
	require.NoError(t, h.PushAction(createNote("n1")))

	bad := history.New(history.NewGroup(testutil.NameID("bad"), testutil.Epoch, []action.Action{
		{Notebook: "study", BibleName: "NIV", Type: action.DeleteNote{ID: "n1"}},
	}))
	_, err := h.Merge(bad)
	require.Error(t, err)

	assert.Equal(t, 1, h.History().Len())
	nb, _ := h.Notebook("study")
	assert.True(t, nb.HasNote("n1"))
}

func TestHandler_ConcurrentPushes(t *testing.T) {
	h, err := New(history.History{}, resolver)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = h.PushAction(createHighlight("h1"))
				if j%3 == 0 {
					h.CommitGroup()
				}
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, g := range h.History().Groups() {
		total += len(g.Actions)
	}
	assert.Equal(t, 200, total)
}
