package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ascribe/internal/history"
)

const insertGroup = `
	INSERT INTO action_groups (owner_id, id, time_secs, time_nanos, actions)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(owner_id, id) DO NOTHING
`

// WriteGroup inserts a group for owner.
// Uses ON CONFLICT DO NOTHING for idempotency - a group id already stored
// for the owner is silently ignored, even if its payload differs.
func (s *Store) WriteGroup(ctx context.Context, owner string, g history.Group) error {
	row, err := marshalGroup(g)
	if err != nil {
		return fmt.Errorf("write group: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, insertGroup, owner, row.id, row.timeSecs, row.timeNanos, row.actions); err != nil {
		return fmt.Errorf("write group %s: %w", g.ID, err)
	}
	return nil
}

// WriteHistory inserts every group of h in one transaction and returns how
// many were new.
func (s *Store) WriteHistory(ctx context.Context, owner string, h history.History) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write history: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertGroup)
	if err != nil {
		return 0, fmt.Errorf("write history: prepare: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, g := range h.Groups() {
		row, err := marshalGroup(g)
		if err != nil {
			return 0, fmt.Errorf("write history: %w", err)
		}
		res, err := stmt.ExecContext(ctx, owner, row.id, row.timeSecs, row.timeNanos, row.actions)
		if err != nil {
			return 0, fmt.Errorf("write history: group %s: %w", g.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("write history: rows affected: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write history: commit: %w", err)
	}
	return added, nil
}

// RecordSync stores the outcome of a successful remote sync for owner,
// replacing any earlier record.
func (s *Store) RecordSync(ctx context.Context, owner string, state SyncState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (owner_id, fingerprint, group_count, synced_secs)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			group_count = excluded.group_count,
			synced_secs = excluded.synced_secs
	`, owner, state.Fingerprint, state.Groups, state.SyncedAt.Unix())
	if err != nil {
		return fmt.Errorf("record sync: %w", err)
	}
	return nil
}

// SyncState is the last successful sync of an owner.
type SyncState struct {
	Fingerprint string
	Groups      int
	SyncedAt    time.Time
}

// LastSync returns the last recorded sync for owner.
// The bool is false when the owner has never synced.
func (s *Store) LastSync(ctx context.Context, owner string) (SyncState, bool, error) {
	var (
		state SyncState
		secs  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, group_count, synced_secs FROM sync_state WHERE owner_id = ?
	`, owner).Scan(&state.Fingerprint, &state.Groups, &secs)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncState{}, false, nil
	}
	if err != nil {
		return SyncState{}, false, fmt.Errorf("last sync: %w", err)
	}
	state.SyncedAt = time.Unix(secs, 0).UTC()
	return state, true, nil
}
