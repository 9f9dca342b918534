package action

import (
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/notebook"
)

// Kind names an action variant. The value doubles as the JSON tag.
type Kind string

const (
	KindCreateNote        Kind = "CreateNote"
	KindEditNote          Kind = "EditNote"
	KindDeleteNote        Kind = "DeleteNote"
	KindCreateHighlight   Kind = "CreateHighlight"
	KindEditHighlight     Kind = "EditHighlight"
	KindDeleteHighlight   Kind = "DeleteHighlight"
	KindHighlight         Kind = "Highlight"
	KindErase             Kind = "Erase"
	KindEditNoteLocations Kind = "EditNoteLocations"
)

// Type is the closed set of notebook mutations. Only the variants in this
// package implement it.
type Type interface {
	Kind() Kind
	sealed()
}

// CreateNote stores a note, replacing any note with the same ID.
type CreateNote struct {
	Note notebook.NoteData
}

// EditNote replaces an existing note. It does nothing if the note was never
// created.
type EditNote struct {
	Note notebook.NoteData
}

// DeleteNote removes a note and detaches it from its words.
type DeleteNote struct {
	ID string
}

// CreateHighlight stores a highlight category.
type CreateHighlight struct {
	Category notebook.HighlightCategory
}

// EditHighlight overwrites an existing highlight category.
type EditHighlight struct {
	Category notebook.HighlightCategory
}

// DeleteHighlight removes a category and every use of it.
type DeleteHighlight struct {
	ID string
}

// Highlight marks every word of Location with a category. The category
// need not exist yet; its id stays on the words until a DeleteHighlight
// refreshes the notebook.
type Highlight struct {
	HighlightID string                  `json:"highlight_id"`
	Location    bible.ReferenceLocation `json:"location"`
}

// Erase removes a category from every word of Location.
type Erase struct {
	HighlightID string                  `json:"highlight_id"`
	Location    bible.ReferenceLocation `json:"location"`
}

// EditNoteLocations moves an existing note to new locations.
type EditNoteLocations struct {
	NoteID    string                    `json:"note_id"`
	Locations []bible.ReferenceLocation `json:"locations"`
}

func (CreateNote) Kind() Kind        { return KindCreateNote }
func (EditNote) Kind() Kind          { return KindEditNote }
func (DeleteNote) Kind() Kind        { return KindDeleteNote }
func (CreateHighlight) Kind() Kind   { return KindCreateHighlight }
func (EditHighlight) Kind() Kind     { return KindEditHighlight }
func (DeleteHighlight) Kind() Kind   { return KindDeleteHighlight }
func (Highlight) Kind() Kind         { return KindHighlight }
func (Erase) Kind() Kind             { return KindErase }
func (EditNoteLocations) Kind() Kind { return KindEditNoteLocations }

func (CreateNote) sealed()        {}
func (EditNote) sealed()          {}
func (DeleteNote) sealed()        {}
func (CreateHighlight) sealed()   {}
func (EditHighlight) sealed()     {}
func (DeleteHighlight) sealed()   {}
func (Highlight) sealed()         {}
func (Erase) sealed()             {}
func (EditNoteLocations) sealed() {}
