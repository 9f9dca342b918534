package bible

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Mini(t *testing.T) {
	b, err := LoadFile(filepath.Join("testdata", "mini.txt"))
	require.NoError(t, err)

	assert.Equal(t, "MINI", b.Name)
	assert.Equal(t, "A tiny sample text used by tests", b.Description)
	require.Len(t, b.Books, 2)

	assert.Equal(t, []BookView{
		{Name: "Genesis", ChapterCount: 2},
		{Name: "1 John", ChapterCount: 1},
	}, b.BookViews())

	view, err := b.ChapterView(ChapterIndex{Book: 0, Number: 0})
	require.NoError(t, err)
	assert.Equal(t, ChapterView{10, 8, 11}, view)

	view, err = b.ChapterView(ChapterIndex{Book: 0, Number: 1})
	require.NoError(t, err)
	assert.Equal(t, ChapterView{8}, view)

	_, err = b.ChapterView(ChapterIndex{Book: 0, Number: 2})
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = b.ChapterView(ChapterIndex{Book: 5, Number: 0})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestParse_Italics(t *testing.T) {
	b, err := LoadFile(filepath.Join("testdata", "mini.txt"))
	require.NoError(t, err)

	ch, err := b.Chapter(ChapterIndex{Book: 1, Number: 0})
	require.NoError(t, err)
	words := ch.Verses[0].Words
	require.Len(t, words, 10)

	assert.Equal(t, Word{Text: "which", Italicized: true}, words[6])
	assert.False(t, words[1].Italicized)
}

func TestParseVerse_NormalizesNFC(t *testing.T) {
	v := ParseVerse("Cafe\u0301 au lait")
	require.Len(t, v.Words, 3)
	assert.Equal(t, "Caf\u00e9", v.Words[0].Text)
}

func TestParseVerse_BracketsSpanWords(t *testing.T) {
	v := ParseVerse("and [it was] so")
	require.Len(t, v.Words, 4)
	assert.False(t, v.Words[0].Italicized)
	assert.True(t, v.Words[1].Italicized)
	assert.True(t, v.Words[2].Italicized)
	assert.False(t, v.Words[3].Italicized)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("NAME\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("NAME\ndesc\nthis line has no reference\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestParse_SkipsBlankLines(t *testing.T) {
	b, err := Parse(strings.NewReader("X\ndesc\n\nRuth 1:1 one two\n\nRuth 1:2 three\n"))
	require.NoError(t, err)

	view, err := b.ChapterView(ChapterIndex{})
	require.NoError(t, err)
	assert.Equal(t, ChapterView{2, 1}, view)
}

func TestLibrary(t *testing.T) {
	lib, err := LoadLibrary(filepath.Join("testdata", "mini.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"MINI"}, lib.Names())

	src, ok := lib.Lookup("MINI")
	require.True(t, ok)
	view, err := src.ChapterView(ChapterIndex{})
	require.NoError(t, err)
	assert.Len(t, view, 3)

	_, ok = lib.Lookup("KJV")
	assert.False(t, ok)

	_, err = LoadLibrary(filepath.Join("testdata", "mini.txt"), filepath.Join("testdata", "mini.txt"))
	assert.Error(t, err)
}
