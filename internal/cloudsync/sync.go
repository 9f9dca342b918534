// Package cloudsync reconciles a session with a remote store.
//
// A sync reads the remote blob without holding the session lock, merges and
// replays under the lock (inside session.Handler.Merge), then writes the
// merged history back without the lock. Two racing syncs can both write,
// but merge is commutative and idempotent, so the later write never loses
// groups; at worst it repeats a round trip.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/remote"
	"github.com/roach88/ascribe/internal/save"
	"github.com/roach88/ascribe/internal/session"
)

// Op names the stage of a sync that failed.
type Op string

const (
	OpRead   Op = "read"
	OpDecode Op = "decode"
	OpMerge  Op = "merge"
	OpEncode Op = "encode"
	OpWrite  Op = "write"
)

// SyncError reports a failed sync.
//
// Read and write failures are transient: local state is intact (after a
// failed write it already holds the merge) and the next sync retries.
// Decode and merge failures need attention before a retry can succeed.
type SyncError struct {
	Op  Op
	Err error
}

// Transient reports whether retrying later may succeed.
func (e *SyncError) Transient() bool {
	return e.Op == OpRead || e.Op == OpWrite
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Transient() {
		return fmt.Sprintf("sync %s failed, will retry: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sync %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsTransient returns true if err is a SyncError that may succeed on retry.
// Uses errors.As to handle wrapped errors.
func IsTransient(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return false
}

// Result summarizes a completed sync.
type Result struct {
	RemoteFound  bool   `json:"remote_found"`
	RemoteGroups int    `json:"remote_groups"`
	MergedGroups int    `json:"merged_groups"`
	Wrote        bool   `json:"wrote"`
	Fingerprint  string `json:"fingerprint"`
}

// Syncer syncs sessions of one owner with one store.
type Syncer struct {
	store   remote.Store
	owner   string
	timeout time.Duration
	pretty  bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithTimeout bounds each store call. Zero means no extra bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		s.timeout = d
	}
}

// WithPrettyOutput indents the written blob.
func WithPrettyOutput(pretty bool) Option {
	return func(s *Syncer) {
		s.pretty = pretty
	}
}

// New returns a Syncer writing saves owned by owner.
func New(store remote.Store, owner string, opts ...Option) *Syncer {
	s := &Syncer{store: store, owner: owner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync reads the remote history, merges it into h and writes the result
// back. The write is skipped when the remote already holds the merge.
func (s *Syncer) Sync(ctx context.Context, h *session.Handler) (Result, error) {
	remoteHist, found, err := s.read(ctx)
	if err != nil {
		return Result{}, err
	}

	merged, err := h.Merge(remoteHist)
	if err != nil {
		return Result{}, &SyncError{Op: OpMerge, Err: err}
	}

	res := Result{
		RemoteFound:  found,
		RemoteGroups: remoteHist.Len(),
		MergedGroups: merged.Len(),
		Fingerprint:  merged.Fingerprint(),
	}

	if found && remoteHist.Fingerprint() == res.Fingerprint {
		slog.Info("sync complete, remote up to date", "owner", s.owner, "groups", res.MergedGroups)
		return res, nil
	}

	blob, err := save.EncodeHistory(merged, s.owner, s.pretty)
	if err != nil {
		return Result{}, &SyncError{Op: OpEncode, Err: err}
	}
	if err := s.write(ctx, blob); err != nil {
		slog.Warn("sync write failed, merged history kept locally", "owner", s.owner, "error", err)
		return res, err
	}
	res.Wrote = true

	slog.Info("sync complete",
		"owner", s.owner,
		"remote_groups", res.RemoteGroups,
		"merged_groups", res.MergedGroups,
	)
	return res, nil
}

func (s *Syncer) read(ctx context.Context) (history.History, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	data, found, err := s.store.Read(ctx)
	if err != nil {
		return history.History{}, false, &SyncError{Op: OpRead, Err: err}
	}
	if !found {
		return history.History{}, false, nil
	}

	rs, err := save.Decode(data)
	if err != nil {
		return history.History{}, false, &SyncError{Op: OpDecode, Err: err}
	}
	if owner := rs.NoteRecordSave.Owner(); owner != "" && s.owner != "" && owner != s.owner {
		// Ownership is recorded, never enforced.
		slog.Warn("remote save belongs to a different owner", "remote_owner", owner, "owner", s.owner)
	}
	return rs.NoteRecordSave.History, true, nil
}

func (s *Syncer) write(ctx context.Context, blob []byte) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.store.Write(ctx, blob); err != nil {
		return &SyncError{Op: OpWrite, Err: err}
	}
	return nil
}

func (s *Syncer) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
