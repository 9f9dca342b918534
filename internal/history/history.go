// Package history holds the append-only action log and the operations that
// fold it into notebooks and merge two logs together.
//
// A History is always sorted by (time, id). Replaying the same history
// always produces the same notebooks, and merging is commutative and
// idempotent, so two devices that exchange histories converge on the same
// state regardless of who merges first.
package history

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/notebook"
)

// fingerprintDomain separates history fingerprints from any other hash.
// The version suffix allows the layout to change later.
const fingerprintDomain = "ascribe/history/v1"

// History is an ordered log of groups.
type History struct {
	groups []Group
}

// New returns a history holding groups in canonical order.
func New(groups ...Group) History {
	if len(groups) == 0 {
		return History{}
	}
	h := History{groups: slices.Clone(groups)}
	slices.SortStableFunc(h.groups, before)
	return h
}

// Push appends a group and re-sorts the log.
func (h *History) Push(g Group) {
	h.groups = append(h.groups, g)
	slices.SortStableFunc(h.groups, before)
}

// Len returns the number of groups.
func (h History) Len() int {
	return len(h.groups)
}

// Groups returns a copy of the groups in order.
func (h History) Groups() []Group {
	return slices.Clone(h.groups)
}

// IDs returns the group ids in order.
func (h History) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(h.groups))
	for i, g := range h.groups {
		ids[i] = g.ID
	}
	return ids
}

// Contains reports whether a group with id is present.
func (h History) Contains(id uuid.UUID) bool {
	return slices.ContainsFunc(h.groups, func(g Group) bool { return g.ID == id })
}

// Latest returns the last group in order.
func (h History) Latest() (Group, bool) {
	if len(h.groups) == 0 {
		return Group{}, false
	}
	return h.groups[len(h.groups)-1], true
}

// Clone returns an independent copy of the log. Groups are immutable once
// committed, so they are shared.
func (h History) Clone() History {
	return History{groups: slices.Clone(h.groups)}
}

// ToNotebookMap replays every group, in order, into a fresh map.
// The first failing action aborts the replay.
func (h History) ToNotebookMap(resolver bible.Resolver) (notebook.Map, error) {
	notebooks := notebook.Map{}
	for _, g := range h.groups {
		if err := g.Perform(notebooks, resolver); err != nil {
			return nil, err
		}
	}
	return notebooks, nil
}

// Merge combines two histories. Groups are deduplicated by id, keeping the
// first occurrence with left before right, then sorted by (time, id).
func Merge(left, right History) History {
	seen := make(map[uuid.UUID]struct{}, len(left.groups)+len(right.groups))
	groups := make([]Group, 0, len(left.groups)+len(right.groups))
	for _, side := range [][]Group{left.groups, right.groups} {
		for _, g := range side {
			if _, dup := seen[g.ID]; dup {
				continue
			}
			seen[g.ID] = struct{}{}
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return History{}
	}
	slices.SortStableFunc(groups, before)
	return History{groups: groups}
}

// Fingerprint hashes the ordered (id, time) pairs of the log.
// Two histories with the same fingerprint hold the same groups.
func (h History) Fingerprint() string {
	hash := sha256.New()
	hash.Write([]byte(fingerprintDomain))
	hash.Write([]byte{0x00})

	var buf [16 + 8 + 4]byte
	for _, g := range h.groups {
		copy(buf[:16], g.ID[:])
		binary.BigEndian.PutUint64(buf[16:24], uint64(g.Time.Unix()))
		binary.BigEndian.PutUint32(buf[24:], uint32(g.Time.Nanosecond()))
		hash.Write(buf[:])
	}
	return hex.EncodeToString(hash.Sum(nil))
}

type historyJSON struct {
	Groups []Group `json:"groups"`
}

// MarshalJSON writes {"groups": [...]}.
func (h History) MarshalJSON() ([]byte, error) {
	groups := h.groups
	if groups == nil {
		groups = []Group{}
	}
	return json.Marshal(historyJSON{Groups: groups})
}

// UnmarshalJSON reads {"groups": [...]} and restores canonical order.
func (h *History) UnmarshalJSON(data []byte) error {
	var raw historyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	*h = New(raw.Groups...)
	return nil
}
