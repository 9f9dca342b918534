package history

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/notebook"
)

// Group is a timestamped batch of actions. It is the unit of history,
// deduplication and merge: identity is ID, ordering is Time.
type Group struct {
	ID      uuid.UUID
	Actions []action.Action
	Time    time.Time
}

// NewGroup builds a group. The time is stored in UTC without a monotonic
// reading so that it compares equal after an encode/decode round trip.
func NewGroup(id uuid.UUID, at time.Time, actions []action.Action) Group {
	return Group{ID: id, Actions: actions, Time: normalizeTime(at)}
}

func normalizeTime(t time.Time) time.Time {
	return t.Round(0).UTC()
}

// Perform applies every action of the group in order.
func (g Group) Perform(notebooks notebook.Map, resolver bible.Resolver) error {
	for _, a := range g.Actions {
		if err := a.Perform(notebooks, resolver); err != nil {
			return action.WithGroup(err, g.ID.String())
		}
	}
	return nil
}

// before orders groups by time, breaking ties by id.
func before(a, b Group) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// epochTime is the wire form of a timestamp: whole seconds plus nanoseconds
// since the Unix epoch.
type epochTime struct {
	Secs  int64 `json:"secs_since_epoch"`
	Nanos int64 `json:"nanos_since_epoch"`
}

type groupJSON struct {
	ID      uuid.UUID       `json:"id"`
	Actions []action.Action `json:"actions"`
	Time    epochTime       `json:"time"`
}

// MarshalJSON writes the group with an exact nanosecond timestamp.
func (g Group) MarshalJSON() ([]byte, error) {
	actions := g.Actions
	if actions == nil {
		actions = []action.Action{}
	}
	return json.Marshal(groupJSON{
		ID:      g.ID,
		Actions: actions,
		Time:    epochTime{Secs: g.Time.Unix(), Nanos: int64(g.Time.Nanosecond())},
	})
}

// UnmarshalJSON reads the layout written by MarshalJSON.
func (g *Group) UnmarshalJSON(data []byte) error {
	var raw groupJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode group: %w", err)
	}
	if raw.ID == uuid.Nil {
		return errors.New("decode group: missing id")
	}
	if raw.Time.Nanos < 0 || raw.Time.Nanos >= int64(time.Second) {
		return fmt.Errorf("decode group %s: nanos_since_epoch %d out of range", raw.ID, raw.Time.Nanos)
	}
	*g = NewGroup(raw.ID, time.Unix(raw.Time.Secs, raw.Time.Nanos), raw.Actions)
	return nil
}
