package notebook

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/tiendc/go-deepcopy"

	"github.com/roach88/ascribe/internal/bible"
)

// ChapterAnnotations maps flat word indices to the annotations on that word.
// Only words with at least one annotation have an entry.
type ChapterAnnotations map[int]WordAnnotations

// Notebook is the materialized annotation state for one reading context.
//
// A Notebook is a cache: it is produced by replaying an action history and
// can always be rebuilt from it. Mutations go through the methods below so
// that annotation lists never reference missing notes.
type Notebook struct {
	HighlightCategories map[string]HighlightCategory
	Notes               map[string]NoteData
	Annotations         map[bible.ChapterIndex]ChapterAnnotations
	FavoriteVerses      map[bible.ChapterIndex]int
	SectionHeadings     map[bible.ChapterIndex]map[int]string
}

// New returns an empty notebook.
func New() *Notebook {
	return &Notebook{
		HighlightCategories: make(map[string]HighlightCategory),
		Notes:               make(map[string]NoteData),
		Annotations:         make(map[bible.ChapterIndex]ChapterAnnotations),
		FavoriteVerses:      make(map[bible.ChapterIndex]int),
		SectionHeadings:     make(map[bible.ChapterIndex]map[int]string),
	}
}

// IsEmpty reports whether every collection is empty.
func (n *Notebook) IsEmpty() bool {
	return len(n.HighlightCategories) == 0 &&
		len(n.Notes) == 0 &&
		len(n.Annotations) == 0 &&
		len(n.FavoriteVerses) == 0 &&
		len(n.SectionHeadings) == 0
}

type resolvedLocation struct {
	chapter bible.ChapterIndex
	indices []int
}

func resolveAll(locs []bible.ReferenceLocation, src bible.ChapterSource) ([]resolvedLocation, error) {
	out := make([]resolvedLocation, 0, len(locs))
	for _, loc := range locs {
		indices, err := loc.Resolve(src)
		if err != nil {
			return nil, err
		}
		out = append(out, resolvedLocation{chapter: loc.Chapter, indices: indices})
	}
	return out, nil
}

// AddNote attaches note to every word it covers and stores it by ID,
// replacing any note with the same ID. The replaced note is detached from
// its old words first. Attaching is idempotent.
//
// All locations are resolved before anything changes, so an error leaves
// the notebook untouched.
func (n *Notebook) AddNote(note NoteData, src bible.ChapterSource) error {
	resolved, err := resolveAll(note.Locations, src)
	if err != nil {
		return fmt.Errorf("add note %s: %w", note.ID, err)
	}
	n.addResolved(note, resolved)
	return nil
}

func (n *Notebook) addResolved(note NoteData, resolved []resolvedLocation) {
	if prev, ok := n.Notes[note.ID]; ok {
		n.detach(prev)
	}
	for _, loc := range resolved {
		for _, idx := range loc.indices {
			word := n.word(loc.chapter, idx)
			if !slices.Contains(word.Notes, note.ID) {
				word.Notes = append(word.Notes, note.ID)
			}
			n.setWord(loc.chapter, idx, word)
		}
	}
	note.Locations = slices.Clone(note.Locations)
	n.Notes[note.ID] = note
}

// RemoveNote detaches the note from every word in the chapters it touches
// and deletes it. Removing an unknown note logs a warning and does nothing.
func (n *Notebook) RemoveNote(id string) {
	note, ok := n.Notes[id]
	if !ok {
		slog.Warn("remove note: note does not exist", "note_id", id)
		return
	}

	n.detach(note)
	delete(n.Notes, id)
}

// detach strips note's id from every word in the chapters it touches.
func (n *Notebook) detach(note NoteData) {
	for _, loc := range note.Locations {
		for idx, word := range n.Annotations[loc.Chapter] {
			word.Notes = slices.DeleteFunc(word.Notes, func(s string) bool { return s == note.ID })
			n.setWord(loc.Chapter, idx, word)
		}
	}
}

// UpdateNote replaces the stored note, clearing its old locations first.
func (n *Notebook) UpdateNote(note NoteData, src bible.ChapterSource) error {
	resolved, err := resolveAll(note.Locations, src)
	if err != nil {
		return fmt.Errorf("update note %s: %w", note.ID, err)
	}
	n.RemoveNote(note.ID)
	n.addResolved(note, resolved)
	return nil
}

// RefreshHighlights strips every highlight id that no longer names a
// category.
func (n *Notebook) RefreshHighlights() {
	for chapter, words := range n.Annotations {
		for idx, word := range words {
			word.Highlights = slices.DeleteFunc(word.Highlights, func(id string) bool {
				_, ok := n.HighlightCategories[id]
				return !ok
			})
			n.setWord(chapter, idx, word)
		}
	}
}

// HighlightLocation adds highlightID to every word in loc, once per word.
func (n *Notebook) HighlightLocation(src bible.ChapterSource, highlightID string, loc bible.ReferenceLocation) error {
	indices, err := loc.Resolve(src)
	if err != nil {
		return fmt.Errorf("highlight %s: %w", highlightID, err)
	}
	for _, idx := range indices {
		word := n.word(loc.Chapter, idx)
		if !slices.Contains(word.Highlights, highlightID) {
			word.Highlights = append(word.Highlights, highlightID)
		}
		n.setWord(loc.Chapter, idx, word)
	}
	return nil
}

// EraseLocationHighlight removes highlightID from every word in loc.
// Words that do not carry it are left alone.
func (n *Notebook) EraseLocationHighlight(src bible.ChapterSource, highlightID string, loc bible.ReferenceLocation) error {
	indices, err := loc.Resolve(src)
	if err != nil {
		return fmt.Errorf("erase %s: %w", highlightID, err)
	}
	words, ok := n.Annotations[loc.Chapter]
	if !ok {
		return nil
	}
	for _, idx := range indices {
		word, ok := words[idx]
		if !ok {
			continue
		}
		word.Highlights = slices.DeleteFunc(word.Highlights, func(id string) bool { return id == highlightID })
		n.setWord(loc.Chapter, idx, word)
	}
	return nil
}

// Note returns the note stored under id.
func (n *Notebook) Note(id string) (NoteData, bool) {
	note, ok := n.Notes[id]
	return note, ok
}

// HasNote reports whether a note with id exists.
func (n *Notebook) HasNote(id string) bool {
	_, ok := n.Notes[id]
	return ok
}

// Category returns the highlight category stored under id.
func (n *Notebook) Category(id string) (HighlightCategory, bool) {
	c, ok := n.HighlightCategories[id]
	return c, ok
}

// WordAnnotationsAt returns the annotations on one word.
func (n *Notebook) WordAnnotationsAt(chapter bible.ChapterIndex, index int) (WordAnnotations, bool) {
	w, ok := n.Annotations[chapter][index]
	return w, ok
}

// AnnotatedChapters returns every chapter with annotations, in canonical order.
func (n *Notebook) AnnotatedChapters() []bible.ChapterIndex {
	return sortedChapters(n.Annotations)
}

// Clone returns a deep copy.
func (n *Notebook) Clone() *Notebook {
	clone := New()
	if err := deepcopy.Copy(clone, n); err != nil {
		// Notebook holds only maps, slices and scalars.
		panic(fmt.Sprintf("notebook: clone: %v", err))
	}
	return clone
}

func (n *Notebook) word(chapter bible.ChapterIndex, idx int) WordAnnotations {
	return n.Annotations[chapter][idx]
}

// setWord stores word, pruning empty words and chapters to keep the
// annotation map sparse.
func (n *Notebook) setWord(chapter bible.ChapterIndex, idx int, word WordAnnotations) {
	if len(word.Highlights) == 0 {
		word.Highlights = nil
	}
	if len(word.Notes) == 0 {
		word.Notes = nil
	}
	words, ok := n.Annotations[chapter]
	if word.empty() {
		if ok {
			delete(words, idx)
			if len(words) == 0 {
				delete(n.Annotations, chapter)
			}
		}
		return
	}
	if !ok {
		words = make(ChapterAnnotations)
		n.Annotations[chapter] = words
	}
	words[idx] = word
}

func sortedChapters[V any](m map[bible.ChapterIndex]V) []bible.ChapterIndex {
	keys := make([]bible.ChapterIndex, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
