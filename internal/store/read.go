package store

import (
	"context"
	"fmt"

	"github.com/roach88/ascribe/internal/history"
)

// ReadHistory returns every stored group of owner.
// Results are ordered deterministically: ORDER BY time_secs, time_nanos, id COLLATE BINARY.
//
// Returns an empty history (not an error) if the owner has no groups.
func (s *Store) ReadHistory(ctx context.Context, owner string) (history.History, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, time_secs, time_nanos, actions
		FROM action_groups
		WHERE owner_id = ?
		ORDER BY time_secs ASC, time_nanos ASC, id COLLATE BINARY ASC
	`, owner)
	if err != nil {
		return history.History{}, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []history.Group
	for rows.Next() {
		var row groupRow
		if err := rows.Scan(&row.id, &row.timeSecs, &row.timeNanos, &row.actions); err != nil {
			return history.History{}, fmt.Errorf("scan group: %w", err)
		}
		g, err := unmarshalGroup(row)
		if err != nil {
			return history.History{}, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return history.History{}, fmt.Errorf("iterate groups: %w", err)
	}

	return history.New(groups...), nil
}

// ListOwners returns every owner with at least one stored group, sorted.
func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT owner_id FROM action_groups ORDER BY owner_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owners: %w", err)
	}
	return owners, nil
}

// CountGroups returns how many groups are stored for owner.
func (s *Store) CountGroups(ctx context.Context, owner string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM action_groups WHERE owner_id = ?
	`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return n, nil
}
