package session

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies commit timestamps.
// Implemented by SystemClock (production) and testutil.DeterministicClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IDGenerator supplies group ids.
// Implemented by RandomIDs (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	NewID() uuid.UUID
}

// RandomIDs generates random (version 4) UUIDs.
//
// Thread-safety: RandomIDs is stateless and safe for concurrent use.
type RandomIDs struct{}

// NewID returns a fresh UUIDv4.
func (RandomIDs) NewID() uuid.UUID {
	return uuid.New()
}
