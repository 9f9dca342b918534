package notebook

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/roach88/ascribe/internal/bible"
)

// pair encodes a map entry as a two-element array so that maps keyed by
// ChapterIndex survive JSON, which only allows string keys.
type pair[K, V any] struct {
	Key   K
	Value V
}

func (p pair[K, V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Key, p.Value})
}

func (p *pair[K, V]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("map entry: want [key, value], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return fmt.Errorf("map entry key: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("map entry value: %w", err)
	}
	return nil
}

func toPairs[V any](m map[bible.ChapterIndex]V) []pair[bible.ChapterIndex, V] {
	out := make([]pair[bible.ChapterIndex, V], 0, len(m))
	for _, k := range sortedChapters(m) {
		out = append(out, pair[bible.ChapterIndex, V]{Key: k, Value: m[k]})
	}
	return out
}

func fromPairs[V any](pairs []pair[bible.ChapterIndex, V]) map[bible.ChapterIndex]V {
	m := make(map[bible.ChapterIndex]V, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

type notebookJSON struct {
	HighlightCategories map[string]HighlightCategory                   `json:"highlight_categories"`
	Notes               map[string]NoteData                            `json:"notes"`
	FavoriteVerses      []pair[bible.ChapterIndex, int]                `json:"favorite_verses"`
	SectionHeadings     []pair[bible.ChapterIndex, map[int]string]     `json:"section_headings"`
	Annotations         []pair[bible.ChapterIndex, ChapterAnnotations] `json:"annotations"`
}

// MarshalJSON writes chapter-keyed maps as sorted [key, value] lists.
func (n *Notebook) MarshalJSON() ([]byte, error) {
	return json.Marshal(notebookJSON{
		HighlightCategories: n.HighlightCategories,
		Notes:               n.Notes,
		FavoriteVerses:      toPairs(n.FavoriteVerses),
		SectionHeadings:     toPairs(n.SectionHeadings),
		Annotations:         toPairs(n.Annotations),
	})
}

// UnmarshalJSON reads the layout written by MarshalJSON.
func (n *Notebook) UnmarshalJSON(data []byte) error {
	var raw notebookJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode notebook: %w", err)
	}
	*n = Notebook{
		HighlightCategories: raw.HighlightCategories,
		Notes:               raw.Notes,
		FavoriteVerses:      fromPairs(raw.FavoriteVerses),
		SectionHeadings:     fromPairs(raw.SectionHeadings),
		Annotations:         fromPairs(raw.Annotations),
	}
	if n.HighlightCategories == nil {
		n.HighlightCategories = make(map[string]HighlightCategory)
	}
	if n.Notes == nil {
		n.Notes = make(map[string]NoteData)
	}
	return nil
}
