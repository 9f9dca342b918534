package remote

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process store. It is used by tests and by scenario runs
// that simulate several devices sharing one remote.
//
// Thread-safety: Memory is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	blob   []byte
	found  bool
	writes int

	readErr  error
	writeErr error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

// Read implements Store.
func (m *Memory) Read(ctx context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	return slices.Clone(m.blob), m.found, nil
}

// Write implements Store.
func (m *Memory) Write(ctx context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.blob = slices.Clone(blob)
	m.found = true
	m.writes++
	return nil
}

// Writes returns how many writes succeeded.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// SetErrors makes later reads and writes fail with the given errors.
// Pass nil to clear an error.
func (m *Memory) SetErrors(readErr, writeErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = readErr
	m.writeErr = writeErr
}
