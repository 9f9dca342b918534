package bible

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange reports a range whose end lies before its start.
	ErrInvalidRange = errors.New("invalid word range")

	// ErrOutOfRange reports a verse, word or chapter that does not exist.
	ErrOutOfRange = errors.New("out of range")
)

// ChapterIndex identifies a chapter by zero-based book and chapter number.
type ChapterIndex struct {
	Book   int `json:"book"`
	Number int `json:"number"`
}

// String returns "book:number".
func (c ChapterIndex) String() string {
	return fmt.Sprintf("%d:%d", c.Book, c.Number)
}

// Less orders chapters by book, then number.
func (c ChapterIndex) Less(o ChapterIndex) bool {
	if c.Book != o.Book {
		return c.Book < o.Book
	}
	return c.Number < o.Number
}

// ChapterView is the word count of every verse in a chapter.
type ChapterView []int

// Offset returns the number of words in all verses strictly before verse.
func (v ChapterView) Offset(verse int) int {
	total := 0
	for i := 0; i < verse && i < len(v); i++ {
		total += v[i]
	}
	return total
}

// Flatten converts a (verse, word) pair into a chapter-relative word index.
func Flatten(view ChapterView, verse, word int) int {
	return view.Offset(verse) + word
}

// WordRange is an inclusive span of words, possibly crossing verses.
type WordRange struct {
	VerseStart int `json:"verse_start"`
	WordStart  int `json:"word_start"`
	VerseEnd   int `json:"verse_end"`
	WordEnd    int `json:"word_end"`
}

// Validate checks the ordering invariant of the range.
func (r WordRange) Validate() error {
	if r.VerseStart < 0 || r.WordStart < 0 || r.VerseEnd < 0 || r.WordEnd < 0 {
		return fmt.Errorf("%w: negative position in %s", ErrInvalidRange, r)
	}
	if r.VerseStart > r.VerseEnd {
		return fmt.Errorf("%w: verse %d ends before it starts at %d", ErrInvalidRange, r.VerseEnd, r.VerseStart)
	}
	if r.VerseStart == r.VerseEnd && r.WordStart > r.WordEnd {
		return fmt.Errorf("%w: word %d ends before it starts at %d", ErrInvalidRange, r.WordEnd, r.WordStart)
	}
	return nil
}

// String renders the range as "vs.ws-ve.we".
func (r WordRange) String() string {
	return fmt.Sprintf("%d.%d-%d.%d", r.VerseStart, r.WordStart, r.VerseEnd, r.WordEnd)
}

// RangeError describes a position that falls outside a chapter.
type RangeError struct {
	Verse int
	Word  int
	Count int // words in Verse, or verses in the chapter when Word < 0
}

func (e *RangeError) Error() string {
	if e.Word < 0 {
		return fmt.Sprintf("verse %d out of range: chapter has %d verses", e.Verse, e.Count)
	}
	return fmt.Sprintf("word %d of verse %d out of range: verse has %d words", e.Word, e.Verse, e.Count)
}

// Unwrap lets errors.Is match ErrOutOfRange.
func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// FlatIndices returns every flat word index covered by the range, ascending.
//
// The lower word bound applies only to the first verse and the upper bound
// only to the last; verses in between are covered completely.
func (r WordRange) FlatIndices(view ChapterView) ([]int, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.VerseEnd >= len(view) {
		return nil, &RangeError{Verse: r.VerseEnd, Word: -1, Count: len(view)}
	}
	if err := checkWord(view, r.VerseStart, r.WordStart); err != nil {
		return nil, err
	}
	if err := checkWord(view, r.VerseEnd, r.WordEnd); err != nil {
		return nil, err
	}

	indices := make([]int, 0, r.estimate(view))
	offset := view.Offset(r.VerseStart)
	for verse := r.VerseStart; verse <= r.VerseEnd; verse++ {
		count := view[verse]
		lo, hi := 0, count-1
		if verse == r.VerseStart {
			lo = r.WordStart
		}
		if verse == r.VerseEnd {
			hi = r.WordEnd
		}
		for word := lo; word <= hi && word < count; word++ {
			indices = append(indices, offset+word)
		}
		offset += count
	}
	return indices, nil
}

func (r WordRange) estimate(view ChapterView) int {
	n := view.Offset(r.VerseEnd+1) - view.Offset(r.VerseStart)
	if n < 0 {
		return 0
	}
	return n
}

// checkWord accepts word 0 of an empty verse so that it contributes nothing.
func checkWord(view ChapterView, verse, word int) error {
	count := view[verse]
	if word >= max(count, 1) {
		return &RangeError{Verse: verse, Word: word, Count: count}
	}
	return nil
}

// ReferenceLocation addresses a word range inside one chapter.
type ReferenceLocation struct {
	Chapter ChapterIndex `json:"chapter"`
	Range   WordRange    `json:"range"`
}

// Validate checks the range ordering of the location.
func (l ReferenceLocation) Validate() error {
	if l.Chapter.Book < 0 || l.Chapter.Number < 0 {
		return fmt.Errorf("%w: negative chapter %s", ErrInvalidRange, l.Chapter)
	}
	return l.Range.Validate()
}

// Resolve flattens the location against src.
func (l ReferenceLocation) Resolve(src ChapterSource) ([]int, error) {
	view, err := src.ChapterView(l.Chapter)
	if err != nil {
		return nil, err
	}
	indices, err := l.Range.FlatIndices(view)
	if err != nil {
		return nil, fmt.Errorf("chapter %s: %w", l.Chapter, err)
	}
	return indices, nil
}

// ChapterSource supplies word counts for chapters of one text.
type ChapterSource interface {
	ChapterView(idx ChapterIndex) (ChapterView, error)
}

// Resolver finds the chapter source registered under a text name.
type Resolver interface {
	Lookup(name string) (ChapterSource, bool)
}

// ViewSource is a ChapterSource backed by precomputed views.
type ViewSource map[ChapterIndex]ChapterView

// ChapterView implements ChapterSource.
func (s ViewSource) ChapterView(idx ChapterIndex) (ChapterView, error) {
	view, ok := s[idx]
	if !ok {
		return nil, fmt.Errorf("chapter %s: %w", idx, ErrOutOfRange)
	}
	return view, nil
}
