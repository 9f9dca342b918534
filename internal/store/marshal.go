package store

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/history"
)

// groupRow is the column form of a history group.
type groupRow struct {
	id        []byte
	timeSecs  int64
	timeNanos int64
	actions   string
}

func marshalGroup(g history.Group) (groupRow, error) {
	actions := g.Actions
	if actions == nil {
		actions = []action.Action{}
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return groupRow{}, fmt.Errorf("marshal actions of group %s: %w", g.ID, err)
	}
	id := g.ID
	return groupRow{
		id:        id[:],
		timeSecs:  g.Time.Unix(),
		timeNanos: int64(g.Time.Nanosecond()),
		actions:   string(data),
	}, nil
}

func unmarshalGroup(row groupRow) (history.Group, error) {
	id, err := uuid.FromBytes(row.id)
	if err != nil {
		return history.Group{}, fmt.Errorf("unmarshal group id: %w", err)
	}
	var actions []action.Action
	if err := json.Unmarshal([]byte(row.actions), &actions); err != nil {
		return history.Group{}, fmt.Errorf("unmarshal actions of group %s: %w", id, err)
	}
	return history.NewGroup(id, time.Unix(row.timeSecs, row.timeNanos), actions), nil
}
