package action

import (
	"errors"
	"fmt"
)

// ErrInvalidAction reports an action that must not enter the log.
var ErrInvalidAction = errors.New("invalid action")

// ReplayError reports an action that could not be applied during replay.
//
// Replay stops at the first ReplayError; the caller keeps whatever state it
// had before the replay started.
type ReplayError struct {
	// Code identifies the error category.
	Code ReplayErrorCode

	// Message is a human-readable description.
	Message string

	// Notebook and BibleName come from the failing action.
	Notebook  string
	BibleName string

	// GroupID identifies the group holding the action, when known.
	GroupID string

	// Err is the underlying cause, if any.
	Err error
}

// ReplayErrorCode categorizes replay errors.
type ReplayErrorCode string

const (
	// ErrCodeMissingBible indicates an action names a text that is not loaded.
	ErrCodeMissingBible ReplayErrorCode = "MISSING_BIBLE"

	// ErrCodeOutOfRange indicates a location does not exist in its chapter.
	ErrCodeOutOfRange ReplayErrorCode = "OUT_OF_RANGE"

	// ErrCodeInvalidAction indicates a malformed action reached replay.
	ErrCodeInvalidAction ReplayErrorCode = "INVALID_ACTION"
)

// Error implements the error interface.
func (e *ReplayError) Error() string {
	if e.GroupID != "" {
		return fmt.Sprintf("%s: %s (notebook=%s, bible=%s, group=%s)", e.Code, e.Message, e.Notebook, e.BibleName, e.GroupID)
	}
	return fmt.Sprintf("%s: %s (notebook=%s, bible=%s)", e.Code, e.Message, e.Notebook, e.BibleName)
}

// Unwrap returns the underlying cause.
func (e *ReplayError) Unwrap() error {
	return e.Err
}

// IsMissingBible returns true if err is a missing-bible replay error.
// Uses errors.As to handle wrapped errors.
func IsMissingBible(err error) bool {
	var re *ReplayError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMissingBible
	}
	return false
}

// IsOutOfRange returns true if err is an out-of-range replay error.
func IsOutOfRange(err error) bool {
	var re *ReplayError
	if errors.As(err, &re) {
		return re.Code == ErrCodeOutOfRange
	}
	return false
}

// WithGroup returns err with the group id attached when err is a ReplayError.
func WithGroup(err error, groupID string) error {
	var re *ReplayError
	if errors.As(err, &re) {
		cp := *re
		cp.GroupID = groupID
		return &cp
	}
	return err
}
