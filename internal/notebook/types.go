package notebook

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/ascribe/internal/bible"
)

// SourceType describes how a name, description or note body is formatted.
type SourceType string

const (
	SourceHTML     SourceType = "html"
	SourceJSON     SourceType = "json"
	SourceMarkdown SourceType = "markdown"
)

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceHTML, SourceJSON, SourceMarkdown:
		return true
	}
	return false
}

// Color is an RGB display color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ParseColor parses "#rrggbb".
func ParseColor(hex string) (Color, error) {
	if len(hex) != 7 || !strings.HasPrefix(hex, "#") {
		return Color{}, fmt.Errorf("parse color %q: want #rrggbb", hex)
	}
	var parts [3]uint8
	for i := range parts {
		v, err := strconv.ParseUint(hex[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("parse color %q: %w", hex, err)
		}
		parts[i] = uint8(v)
	}
	return Color{R: parts[0], G: parts[1], B: parts[2]}, nil
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HighlightCategory is a user-defined highlight style. Identity is by ID;
// edits overwrite the whole category.
type HighlightCategory struct {
	ID          string     `json:"id"`
	Color       Color      `json:"color"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Priority    uint32     `json:"priority"`
	SourceType  SourceType `json:"source_type"`
}

// NoteData is a note attached to one or more text locations.
type NoteData struct {
	ID         string                    `json:"id"`
	Text       string                    `json:"text"`
	Locations  []bible.ReferenceLocation `json:"locations"`
	SourceType SourceType                `json:"source_type"`
}

// Equal reports structural equality.
func (n NoteData) Equal(o NoteData) bool {
	return n.ID == o.ID &&
		n.Text == o.Text &&
		n.SourceType == o.SourceType &&
		slices.Equal(n.Locations, o.Locations)
}

// WordAnnotations lists the highlight and note ids attached to one word.
type WordAnnotations struct {
	Highlights []string `json:"highlights"`
	Notes      []string `json:"notes"`
}

func (w *WordAnnotations) empty() bool {
	return len(w.Highlights) == 0 && len(w.Notes) == 0
}
