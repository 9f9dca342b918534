// Package workspace wires the loaded texts, the local store, remote stores
// and one live session per owner into a single application context.
//
// Nothing here is global: commands open a Workspace from a config, use it,
// and close it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/cloudsync"
	"github.com/roach88/ascribe/internal/config"
	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/remote"
	"github.com/roach88/ascribe/internal/session"
	"github.com/roach88/ascribe/internal/store"
)

// DefaultOwner is used when neither the caller nor the config names one.
const DefaultOwner = "default"

// ErrNoRemote is returned when a sync is requested without a remote.
var ErrNoRemote = errors.New("no remote configured")

// Workspace is safe for concurrent use.
type Workspace struct {
	cfg     config.Config
	library bible.Library
	store   *store.Store

	clock session.Clock
	ids   session.IDGenerator

	mu       sync.Mutex
	handlers map[string]*session.Handler
	remotes  map[string]remote.Store
	remoteFn func(ctx context.Context, owner string) (remote.Store, error)
	closers  []io.Closer
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithClock sets the clock handed to new sessions.
func WithClock(c session.Clock) Option {
	return func(w *Workspace) {
		w.clock = c
	}
}

// WithIDGenerator sets the group id source handed to new sessions.
func WithIDGenerator(g session.IDGenerator) Option {
	return func(w *Workspace) {
		w.ids = g
	}
}

// WithLibrary adds texts on top of those named in the config.
func WithLibrary(lib bible.Library) Option {
	return func(w *Workspace) {
		for _, b := range lib {
			w.library.Add(b)
		}
	}
}

// WithRemote replaces the configured remote with s for every owner.
func WithRemote(s remote.Store) Option {
	return func(w *Workspace) {
		w.remoteFn = func(context.Context, string) (remote.Store, error) {
			return s, nil
		}
	}
}

// Open loads the configured texts and opens the local store.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Workspace, error) {
	lib, err := bible.LoadLibrary(cfg.Bibles...)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	w := &Workspace{
		cfg:      cfg,
		library:  lib,
		store:    st,
		clock:    session.SystemClock{},
		ids:      session.RandomIDs{},
		handlers: make(map[string]*session.Handler),
		remotes:  make(map[string]remote.Store),
	}
	w.remoteFn = w.openRemote
	for _, opt := range opts {
		opt(w)
	}

	slog.Debug("workspace opened",
		"database", cfg.Database,
		"bibles", lib.Names(),
		"remote", cfg.Remote.Kind,
	)
	return w, nil
}

// Config returns the configuration the workspace was opened with.
func (w *Workspace) Config() config.Config {
	return w.cfg
}

// Library returns the loaded texts.
func (w *Workspace) Library() bible.Library {
	return w.library
}

// Store returns the local store.
func (w *Workspace) Store() *store.Store {
	return w.store
}

// Owner resolves the owner to act for: the argument, else the configured
// owner, else DefaultOwner.
func (w *Workspace) Owner(owner string) string {
	if owner != "" {
		return owner
	}
	if w.cfg.Owner != "" {
		return w.cfg.Owner
	}
	return DefaultOwner
}

// Handler returns the live session of owner, replaying its stored history
// on first use.
func (w *Workspace) Handler(ctx context.Context, owner string) (*session.Handler, error) {
	owner = w.Owner(owner)

	w.mu.Lock()
	defer w.mu.Unlock()

	if h, ok := w.handlers[owner]; ok {
		return h, nil
	}

	hist, err := w.store.ReadHistory(ctx, owner)
	if err != nil {
		return nil, err
	}
	h, err := session.New(hist, w.library,
		session.WithClock(w.clock),
		session.WithIDGenerator(w.ids),
		session.WithGroupWindow(w.cfg.GroupWindow()),
	)
	if err != nil {
		return nil, fmt.Errorf("open session for %s: %w", owner, err)
	}
	w.handlers[owner] = h
	return h, nil
}

// Owners lists owners with a live session or stored history, sorted.
func (w *Workspace) Owners(ctx context.Context) ([]string, error) {
	stored, err := w.store.ListOwners(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(stored))
	owners := append([]string{}, stored...)
	for _, o := range stored {
		seen[o] = true
	}
	for o := range w.handlers {
		if !seen[o] {
			owners = append(owners, o)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

// Save commits owner's open group and persists the history. It returns the
// number of groups that were new to the store.
func (w *Workspace) Save(ctx context.Context, owner string) (int, error) {
	h, err := w.Handler(ctx, owner)
	if err != nil {
		return 0, err
	}
	return w.store.WriteHistory(ctx, w.Owner(owner), h.History())
}

// Import merges hist into owner's session and persists the result.
func (w *Workspace) Import(ctx context.Context, owner string, hist history.History) (history.History, error) {
	h, err := w.Handler(ctx, owner)
	if err != nil {
		return history.History{}, err
	}
	merged, err := h.Merge(hist)
	if err != nil {
		return history.History{}, err
	}
	if _, err := w.store.WriteHistory(ctx, w.Owner(owner), merged); err != nil {
		return history.History{}, err
	}
	return merged, nil
}

// Sync reconciles owner's session with the remote and persists the merge
// locally, even when the remote write failed.
func (w *Workspace) Sync(ctx context.Context, owner string) (cloudsync.Result, error) {
	owner = w.Owner(owner)
	h, err := w.Handler(ctx, owner)
	if err != nil {
		return cloudsync.Result{}, err
	}
	rs, err := w.Remote(ctx, owner)
	if err != nil {
		return cloudsync.Result{}, err
	}

	syncer := cloudsync.New(rs, owner, cloudsync.WithTimeout(w.cfg.Remote.Timeout()))
	res, syncErr := syncer.Sync(ctx, h)

	var se *cloudsync.SyncError
	if syncErr != nil && !(errors.As(syncErr, &se) && se.Op == cloudsync.OpWrite) {
		return res, syncErr
	}

	if _, err := w.store.WriteHistory(ctx, owner, h.History()); err != nil {
		return res, errors.Join(syncErr, err)
	}
	if syncErr != nil {
		return res, syncErr
	}

	if err := w.store.RecordSync(ctx, owner, store.SyncState{
		Fingerprint: res.Fingerprint,
		Groups:      res.MergedGroups,
		SyncedAt:    w.clock.Now(),
	}); err != nil {
		return res, err
	}
	return res, nil
}

// Remote returns the remote store of owner.
func (w *Workspace) Remote(ctx context.Context, owner string) (remote.Store, error) {
	return w.remoteFn(ctx, w.Owner(owner))
}

func (w *Workspace) openRemote(ctx context.Context, owner string) (remote.Store, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rs, ok := w.remotes[owner]; ok {
		return rs, nil
	}

	rc := w.cfg.Remote
	var rs remote.Store
	switch rc.Kind {
	case config.RemoteFile:
		rs = remote.NewFileStore(remote.ExpandOwner(rc.Path, owner))
	case config.RemoteS3:
		s3, err := remote.OpenS3(ctx, remote.S3Options{
			Region:   rc.Region,
			Bucket:   rc.Bucket,
			Key:      remote.ExpandOwner(rc.Key, owner),
			Endpoint: rc.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		rs = s3
	case config.RemoteRedis:
		rd, err := remote.OpenRedis(ctx, remote.RedisOptions{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Key:      remote.ExpandOwner(rc.Key, owner),
		})
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, rd)
		rs = rd
	case config.RemoteNone, "":
		return nil, ErrNoRemote
	default:
		return nil, fmt.Errorf("unknown remote kind %q", rc.Kind)
	}

	w.remotes[owner] = rs
	return rs, nil
}

// Close releases remote connections and the local store.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	w.closers = nil
	errs = append(errs, w.store.Close())
	return errors.Join(errs...)
}
