package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/notebook"
	"github.com/roach88/ascribe/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type testResolver map[string]bible.ChapterSource

func (r testResolver) Lookup(name string) (bible.ChapterSource, bool) {
	src, ok := r[name]
	return src, ok
}

var resolver = testResolver{"KJV": bible.ViewSource{bible.ChapterIndex{}: {3, 2, 4}}}

// createTestGroup creates a group with one category action per id.
func createTestGroup(name string, offset time.Duration, categories ...string) history.Group {
	actions := make([]action.Action, len(categories))
	for i, id := range categories {
		actions[i] = action.Action{
			Notebook:  "study",
			BibleName: "KJV",
			Type:      action.CreateHighlight{Category: notebook.HighlightCategory{ID: id, Name: id}},
		}
	}
	return history.NewGroup(testutil.NameID(name), testutil.Epoch.Add(offset), actions)
}
