package testutil

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Namespace is the UUIDv5 namespace used for test ids.
var Namespace = uuid.MustParse("0f7d8c1e-3a4b-5c6d-8e9f-a0b1c2d3e4f5")

// NameID returns the deterministic id for name.
func NameID(name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(name))
}

// SequentialIDs generates predictable group ids for tests.
//
// The n-th call returns NameID(prefix + "-" + n), starting at 1, so the same
// scenario with the same prefix produces byte-identical histories.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix uses "group".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "group"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next id.
//
// Implements session.IDGenerator.
func (g *SequentialIDs) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return NameID(g.prefix + "-" + strconv.Itoa(g.n))
}

// Peek returns the id the n-th call to NewID produces.
func (g *SequentialIDs) Peek(n int) uuid.UUID {
	return NameID(g.prefix + "-" + strconv.Itoa(n))
}
