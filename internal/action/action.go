package action

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/notebook"
)

// Action is one user edit, addressed to a named notebook and interpreted
// against a named text.
type Action struct {
	Notebook  string
	BibleName string
	Type      Type
}

// Validate rejects actions that must never enter the log.
func (a Action) Validate() error {
	if a.Notebook == "" {
		return fmt.Errorf("%w: empty notebook name", ErrInvalidAction)
	}
	if a.BibleName == "" {
		return fmt.Errorf("%w: empty bible name", ErrInvalidAction)
	}
	if a.Type == nil {
		return fmt.Errorf("%w: missing action type", ErrInvalidAction)
	}
	return validateType(a.Type)
}

func validateType(t Type) error {
	switch t := t.(type) {
	case CreateNote:
		return validateNote(t.Note)
	case EditNote:
		return validateNote(t.Note)
	case DeleteNote:
		return requireID("note", t.ID)
	case CreateHighlight:
		return validateCategory(t.Category)
	case EditHighlight:
		return validateCategory(t.Category)
	case DeleteHighlight:
		return requireID("highlight", t.ID)
	case Highlight:
		if err := requireID("highlight", t.HighlightID); err != nil {
			return err
		}
		return validateLocations([]bible.ReferenceLocation{t.Location})
	case Erase:
		if err := requireID("highlight", t.HighlightID); err != nil {
			return err
		}
		return validateLocations([]bible.ReferenceLocation{t.Location})
	case EditNoteLocations:
		if err := requireID("note", t.NoteID); err != nil {
			return err
		}
		return validateLocations(t.Locations)
	default:
		return fmt.Errorf("%w: unknown action type %T", ErrInvalidAction, t)
	}
}

func requireID(what, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty %s id", ErrInvalidAction, what)
	}
	return nil
}

func validateNote(n notebook.NoteData) error {
	if err := requireID("note", n.ID); err != nil {
		return err
	}
	if n.SourceType != "" && !n.SourceType.Valid() {
		return fmt.Errorf("%w: note %s: unknown source type %q", ErrInvalidAction, n.ID, n.SourceType)
	}
	return validateLocations(n.Locations)
}

func validateCategory(c notebook.HighlightCategory) error {
	if err := requireID("highlight", c.ID); err != nil {
		return err
	}
	if c.SourceType != "" && !c.SourceType.Valid() {
		return fmt.Errorf("%w: highlight %s: unknown source type %q", ErrInvalidAction, c.ID, c.SourceType)
	}
	return nil
}

func validateLocations(locs []bible.ReferenceLocation) error {
	for i, loc := range locs {
		if err := loc.Validate(); err != nil {
			return fmt.Errorf("%w: location %d: %w", ErrInvalidAction, i, err)
		}
	}
	return nil
}

// Perform applies the action to the named notebook in notebooks.
//
// The text is looked up first; a missing text is fatal and leaves notebooks
// untouched. A notebook that does not exist yet is only added once the
// action applies cleanly.
func (a Action) Perform(notebooks notebook.Map, resolver bible.Resolver) error {
	src, ok := resolver.Lookup(a.BibleName)
	if !ok {
		return &ReplayError{
			Code:      ErrCodeMissingBible,
			Message:   fmt.Sprintf("bible %q is not loaded", a.BibleName),
			Notebook:  a.Notebook,
			BibleName: a.BibleName,
		}
	}

	nb, exists := notebooks[a.Notebook]
	if !exists {
		nb = notebook.New()
	}
	if err := apply(nb, src, a.Type); err != nil {
		code := ErrCodeInvalidAction
		if errors.Is(err, bible.ErrOutOfRange) {
			code = ErrCodeOutOfRange
		}
		return &ReplayError{
			Code:      code,
			Message:   err.Error(),
			Notebook:  a.Notebook,
			BibleName: a.BibleName,
			Err:       err,
		}
	}
	if !exists {
		notebooks[a.Notebook] = nb
	}
	return nil
}

// apply is the single dispatch over every action variant.
func apply(nb *notebook.Notebook, src bible.ChapterSource, t Type) error {
	switch t := t.(type) {
	case CreateNote:
		return nb.AddNote(t.Note, src)

	case EditNote:
		if !nb.HasNote(t.Note.ID) {
			slog.Debug("edit note skipped: note does not exist", "note_id", t.Note.ID)
			return nil
		}
		return nb.UpdateNote(t.Note, src)

	case DeleteNote:
		nb.RemoveNote(t.ID)
		return nil

	case CreateHighlight:
		nb.HighlightCategories[t.Category.ID] = t.Category
		return nil

	case EditHighlight:
		if _, ok := nb.HighlightCategories[t.Category.ID]; !ok {
			slog.Debug("edit highlight skipped: category does not exist", "highlight_id", t.Category.ID)
			return nil
		}
		nb.HighlightCategories[t.Category.ID] = t.Category
		return nil

	case DeleteHighlight:
		if _, ok := nb.HighlightCategories[t.ID]; !ok {
			slog.Debug("delete highlight skipped: category does not exist", "highlight_id", t.ID)
			return nil
		}
		delete(nb.HighlightCategories, t.ID)
		nb.RefreshHighlights()
		return nil

	case Highlight:
		return nb.HighlightLocation(src, t.HighlightID, t.Location)

	case Erase:
		return nb.EraseLocationHighlight(src, t.HighlightID, t.Location)

	case EditNoteLocations:
		note, ok := nb.Note(t.NoteID)
		if !ok {
			slog.Debug("edit note locations skipped: note does not exist", "note_id", t.NoteID)
			return nil
		}
		note.Locations = t.Locations
		return nb.UpdateNote(note, src)

	case nil:
		return fmt.Errorf("%w: missing action type", ErrInvalidAction)

	default:
		panic(fmt.Sprintf("action: unhandled type %T", t))
	}
}
