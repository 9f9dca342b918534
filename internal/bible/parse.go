package bible

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// versePattern matches "<Book Name> <chapter>:<verse> <text>".
// Book names may start with a numeral ("1 John").
var versePattern = regexp.MustCompile(`^\s*([1-3]?\s*.*?)\s*(\d+):(\d+)\s*(.*)$`)

// Parse reads a text in the plain format:
//
//	<name>
//	<description>
//	<Book> <chapter>:<verse> <words...>
//
// A new book starts whenever the book name changes and a new chapter
// whenever the chapter number changes. Words inside [brackets] are marked
// italicized. All word text is NFC-normalized.
func Parse(r io.Reader) (*Bible, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := &Bible{}
	if !sc.Scan() {
		return nil, fmt.Errorf("parse bible: missing name line")
	}
	b.Name = strings.TrimSpace(sc.Text())
	if b.Name == "" {
		return nil, fmt.Errorf("parse bible: empty name")
	}
	if !sc.Scan() {
		return nil, fmt.Errorf("parse bible: missing description line")
	}
	b.Description = strings.TrimSpace(sc.Text())

	line := 2
	lastChapter := -1
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		m := versePattern.FindStringSubmatch(text)
		if m == nil {
			return nil, fmt.Errorf("parse bible: line %d: expected \"Book C:V text\"", line)
		}
		bookName := strings.TrimSpace(m[1])
		chapterNumber, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("parse bible: line %d: chapter: %w", line, err)
		}

		if len(b.Books) == 0 || b.Books[len(b.Books)-1].Name != bookName {
			b.Books = append(b.Books, Book{Name: bookName})
			lastChapter = -1
		}
		book := &b.Books[len(b.Books)-1]
		if len(book.Chapters) == 0 || chapterNumber != lastChapter {
			book.Chapters = append(book.Chapters, Chapter{})
			lastChapter = chapterNumber
		}
		ch := &book.Chapters[len(book.Chapters)-1]
		ch.Verses = append(ch.Verses, ParseVerse(m[4]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse bible: %w", err)
	}
	return b, nil
}

// ParseVerse splits verse text into words.
func ParseVerse(text string) Verse {
	var (
		words      []Word
		current    strings.Builder
		inBrackets bool
		italic     bool
	)
	flush := func() {
		if current.Len() == 0 {
			return
		}
		words = append(words, Word{
			Text:       norm.NFC.String(current.String()),
			Italicized: italic,
		})
		current.Reset()
		italic = false
	}

	for _, r := range text {
		switch {
		case r == '[':
			inBrackets = true
		case r == ']':
			inBrackets = false
		case unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
			if inBrackets {
				italic = true
			}
		}
	}
	flush()

	return Verse{Words: words}
}

// LoadFile parses the text stored at path.
func LoadFile(path string) (*Bible, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load bible: %w", err)
	}
	defer f.Close()

	b, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load bible %s: %w", path, err)
	}
	return b, nil
}

// LoadLibrary parses every path and registers the results by name.
func LoadLibrary(paths ...string) (Library, error) {
	lib := make(Library, len(paths))
	for _, path := range paths {
		b, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if _, dup := lib[b.Name]; dup {
			return nil, fmt.Errorf("load bible %s: duplicate name %q", path, b.Name)
		}
		lib.Add(b)
	}
	return lib, nil
}
