// Package remote provides the stores that hold a shared history blob.
//
// A store treats the blob as opaque bytes. It performs no retries: a failed
// read or write is reported to the caller, which retries on the next sync.
package remote

import (
	"context"
	"strings"
)

// Store reads and writes one serialized save.
type Store interface {
	// Read returns the stored blob. found is false when nothing has been
	// written yet; that is not an error.
	Read(ctx context.Context) (blob []byte, found bool, err error)

	// Write replaces the stored blob.
	Write(ctx context.Context, blob []byte) error
}

// OwnerPlaceholder is replaced by the owner id in keys and paths.
const OwnerPlaceholder = "{owner}"

// ExpandOwner substitutes owner into a key or path template.
// Templates without the placeholder are returned unchanged.
func ExpandOwner(template, owner string) string {
	if owner == "" {
		owner = "default"
	}
	return strings.ReplaceAll(template, OwnerPlaceholder, owner)
}
