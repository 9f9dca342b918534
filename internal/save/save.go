// Package save defines the serialized form of a notebook record: the
// history blob that is written to remote stores and export files.
package save

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/roach88/ascribe/internal/history"
)

// CurrentVersion is the only record layout this build reads and writes.
// Older layouts are converted by an external migration step.
const CurrentVersion = "0"

// ErrUnsupportedVersion reports a blob written with an unknown layout.
var ErrUnsupportedVersion = errors.New("unsupported save version")

// NotebookRecordSave is the synced record for one owner.
type NotebookRecordSave struct {
	History     history.History `json:"history"`
	SaveVersion string          `json:"save_version"`
	OwnerID     *string         `json:"owner_id"`
}

// NewRecord wraps h in a record at the current version.
// An empty owner is stored as null.
func NewRecord(h history.History, owner string) NotebookRecordSave {
	rec := NotebookRecordSave{History: h, SaveVersion: CurrentVersion}
	if owner != "" {
		rec.OwnerID = &owner
	}
	return rec
}

// Owner returns the owner id, or "" when unset.
func (r NotebookRecordSave) Owner() string {
	if r.OwnerID == nil {
		return ""
	}
	return *r.OwnerID
}

// RemoteSave is the envelope stored as the remote blob.
type RemoteSave struct {
	NoteRecordSave NotebookRecordSave `json:"note_record_save"`
}

// Encode serializes a remote save. Pretty output is indented for humans.
func Encode(s RemoteSave, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = json.Marshal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

// Decode parses a remote save and rejects unknown versions.
func Decode(data []byte) (RemoteSave, error) {
	var s RemoteSave
	if err := json.Unmarshal(data, &s); err != nil {
		return RemoteSave{}, fmt.Errorf("decode save: %w", err)
	}
	if v := s.NoteRecordSave.SaveVersion; v != CurrentVersion {
		return RemoteSave{}, fmt.Errorf("decode save: %w: %q", ErrUnsupportedVersion, v)
	}
	return s, nil
}

// EncodeHistory is a convenience for Encode(RemoteSave{NewRecord(h, owner)}).
func EncodeHistory(h history.History, owner string, pretty bool) ([]byte, error) {
	return Encode(RemoteSave{NoteRecordSave: NewRecord(h, owner)}, pretty)
}
