package bible

import (
	"fmt"
	"sort"
)

// Word is a single rendered word of the text.
type Word struct {
	Text       string `json:"text"`
	Italicized bool   `json:"italicized"`
	Red        bool   `json:"red"`
}

// Verse is an ordered list of words.
type Verse struct {
	Words []Word `json:"words"`
}

// Chapter is an ordered list of verses.
type Chapter struct {
	Verses []Verse `json:"verses"`
}

// View returns the word count of every verse.
func (c *Chapter) View() ChapterView {
	view := make(ChapterView, len(c.Verses))
	for i, v := range c.Verses {
		view[i] = len(v.Words)
	}
	return view
}

// Book is a named list of chapters.
type Book struct {
	Name     string    `json:"name"`
	Chapters []Chapter `json:"chapters"`
}

// BookView summarizes a book for navigation.
type BookView struct {
	Name         string `json:"name"`
	ChapterCount int    `json:"chapter_count"`
}

// Bible is one complete, immutable translation.
type Bible struct {
	Name        string `json:"name"`
	Description string `json:"desc"`
	Books       []Book `json:"books"`
}

// Chapter returns the chapter at idx.
func (b *Bible) Chapter(idx ChapterIndex) (*Chapter, error) {
	if idx.Book < 0 || idx.Book >= len(b.Books) {
		return nil, fmt.Errorf("%s: book %d: %w", b.Name, idx.Book, ErrOutOfRange)
	}
	book := &b.Books[idx.Book]
	if idx.Number < 0 || idx.Number >= len(book.Chapters) {
		return nil, fmt.Errorf("%s: %s chapter %d: %w", b.Name, book.Name, idx.Number, ErrOutOfRange)
	}
	return &book.Chapters[idx.Number], nil
}

// ChapterView implements ChapterSource.
func (b *Bible) ChapterView(idx ChapterIndex) (ChapterView, error) {
	ch, err := b.Chapter(idx)
	if err != nil {
		return nil, err
	}
	return ch.View(), nil
}

// BookViews lists every book with its chapter count.
func (b *Bible) BookViews() []BookView {
	views := make([]BookView, len(b.Books))
	for i, book := range b.Books {
		views[i] = BookView{Name: book.Name, ChapterCount: len(book.Chapters)}
	}
	return views
}

// Library holds loaded texts by name.
type Library map[string]*Bible

// Add registers b under its name, replacing any previous text.
func (l Library) Add(b *Bible) {
	l[b.Name] = b
}

// Lookup implements Resolver.
func (l Library) Lookup(name string) (ChapterSource, bool) {
	b, ok := l[name]
	if !ok {
		return nil, false
	}
	return b, true
}

// Names returns the registered names in sorted order.
func (l Library) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
