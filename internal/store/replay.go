package store

import (
	"context"
	"fmt"

	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/notebook"
)

// OwnerState summarizes what the store holds for one owner.
type OwnerState struct {
	Owner       string
	Groups      int
	Fingerprint string
	Notebooks   notebook.Map
	LastSync    *SyncState
}

// Replay reads owner's history and rebuilds its notebooks.
// A replay failure is returned unchanged so callers can inspect the
// action.ReplayError inside it.
func (s *Store) Replay(ctx context.Context, owner string, resolver bible.Resolver) (OwnerState, error) {
	h, err := s.ReadHistory(ctx, owner)
	if err != nil {
		return OwnerState{}, fmt.Errorf("replay %s: %w", owner, err)
	}

	notebooks, err := h.ToNotebookMap(resolver)
	if err != nil {
		return OwnerState{}, err
	}

	state := OwnerState{
		Owner:       owner,
		Groups:      h.Len(),
		Fingerprint: h.Fingerprint(),
		Notebooks:   notebooks,
	}

	last, ok, err := s.LastSync(ctx, owner)
	if err != nil {
		return OwnerState{}, fmt.Errorf("replay %s: %w", owner, err)
	}
	if ok {
		state.LastSync = &last
	}
	return state, nil
}
