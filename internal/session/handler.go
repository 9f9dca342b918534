// Package session wraps a live notebook map and its history behind a lock.
//
// A Handler moves between two phases. It is idle when every pushed action
// has been committed, and accumulating while actions sit in the open group.
// Pushed actions are applied to the live notebooks immediately and only
// reach the history when the open group is committed.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/notebook"
)

// Handler owns the live notebooks, the history they were replayed from and
// the open group of uncommitted actions.
//
// Thread-safety: every exported method takes the handler's mutex for its
// whole duration. The notebook map never leaves the lock by reference.
type Handler struct {
	mu sync.Mutex

	resolver bible.Resolver
	clock    Clock
	ids      IDGenerator
	window   time.Duration

	notebooks notebook.Map
	history   history.History
	open      []action.Action
	openedAt  time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the clock used to stamp committed groups.
func WithClock(c Clock) Option {
	return func(h *Handler) {
		h.clock = c
	}
}

// WithIDGenerator sets the generator used for group ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(h *Handler) {
		h.ids = g
	}
}

// WithGroupWindow time-boxes the open group: an action pushed more than d
// after the open group started commits that group first.
// Zero (the default) disables the window.
func WithGroupWindow(d time.Duration) Option {
	return func(h *Handler) {
		h.window = d
	}
}

// New replays hist and returns a handler over the result.
func New(hist history.History, resolver bible.Resolver, opts ...Option) (*Handler, error) {
	h := &Handler{
		resolver: resolver,
		clock:    SystemClock{},
		ids:      RandomIDs{},
		history:  hist.Clone(),
	}
	for _, opt := range opts {
		opt(h)
	}

	notebooks, err := h.history.ToNotebookMap(resolver)
	if err != nil {
		return nil, err
	}
	h.notebooks = notebooks

	slog.Debug("session loaded", "groups", h.history.Len(), "notebooks", len(notebooks))
	return h, nil
}

// PushAction validates a, applies it to the live notebooks and buffers it
// in the open group. An action that fails is neither applied nor buffered.
func (h *Handler) PushAction(a action.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	if h.window > 0 && len(h.open) > 0 && now.Sub(h.openedAt) > h.window {
		h.commitLocked()
	}

	if err := a.Perform(h.notebooks, h.resolver); err != nil {
		return err
	}
	if len(h.open) == 0 {
		h.openedAt = now
	}
	h.open = append(h.open, a)
	return nil
}

// CommitGroup turns the open actions into a new group. It does nothing when
// no actions are pending.
func (h *Handler) CommitGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commitLocked()
}

func (h *Handler) commitLocked() {
	if len(h.open) == 0 {
		return
	}
	g := history.NewGroup(h.ids.NewID(), h.clock.Now(), h.open)
	h.history.Push(g)
	h.open = nil

	slog.Debug("group committed", "group_id", g.ID, "actions", len(g.Actions))
}

// Pending returns the number of uncommitted actions.
func (h *Handler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.open)
}

// History commits the open group and returns a copy of the history.
func (h *Handler) History() history.History {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commitLocked()
	return h.history.Clone()
}

// GetOrInsertNotebook returns a copy of the named notebook, creating an
// empty one if it does not exist.
func (h *Handler) GetOrInsertNotebook(name string) *notebook.Notebook {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notebooks.GetOrInsert(name).Clone()
}

// Notebook returns a copy of the named notebook without creating it.
func (h *Handler) Notebook(name string) (*notebook.Notebook, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	nb, ok := h.notebooks[name]
	if !ok {
		return nil, false
	}
	return nb.Clone(), true
}

// View runs fn over the live notebooks while holding the lock.
// fn must not retain the map or call back into the handler.
func (h *Handler) View(fn func(notebook.Map)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.notebooks)
}

// Merge commits the open group, merges remote into the local history and
// replays the result. The handler's state is replaced only if the replay
// succeeds. It returns a copy of the merged history.
func (h *Handler) Merge(remote history.History) (history.History, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.commitLocked()
	merged := history.Merge(h.history, remote)
	notebooks, err := merged.ToNotebookMap(h.resolver)
	if err != nil {
		return history.History{}, err
	}

	slog.Info("history merged",
		"local_groups", h.history.Len(),
		"remote_groups", remote.Len(),
		"merged_groups", merged.Len(),
	)
	h.history = merged
	h.notebooks = notebooks
	return merged.Clone(), nil
}
