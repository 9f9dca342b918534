package action

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/roach88/ascribe/internal/notebook"
)

type actionJSON struct {
	Notebook  string          `json:"notebook"`
	BibleName string          `json:"bible_name"`
	Action    json.RawMessage `json:"action"`
}

// MarshalJSON writes the action with its type tagged by variant name:
//
//	{"notebook": "...", "bible_name": "...", "action": {"DeleteNote": "n1"}}
func (a Action) MarshalJSON() ([]byte, error) {
	typ, err := MarshalType(a.Type)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionJSON{Notebook: a.Notebook, BibleName: a.BibleName, Action: typ})
}

// UnmarshalJSON reads the layout written by MarshalJSON.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode action: %w", err)
	}
	typ, err := UnmarshalType(raw.Action)
	if err != nil {
		return err
	}
	*a = Action{Notebook: raw.Notebook, BibleName: raw.BibleName, Type: typ}
	return nil
}

// MarshalType encodes t as a single-key object {"<Kind>": payload}.
func MarshalType(t Type) ([]byte, error) {
	var payload any
	switch t := t.(type) {
	case CreateNote:
		payload = t.Note
	case EditNote:
		payload = t.Note
	case DeleteNote:
		payload = t.ID
	case CreateHighlight:
		payload = t.Category
	case EditHighlight:
		payload = t.Category
	case DeleteHighlight:
		payload = t.ID
	case Highlight, Erase, EditNoteLocations:
		payload = t
	case nil:
		return nil, fmt.Errorf("encode action: %w: missing action type", ErrInvalidAction)
	default:
		return nil, fmt.Errorf("encode action: unknown type %T", t)
	}
	return json.Marshal(map[Kind]any{t.Kind(): payload})
}

// UnmarshalType decodes the single-key tagged form.
func UnmarshalType(data []byte) (Type, error) {
	var tagged map[Kind]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("decode action type: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("decode action type: want exactly one variant, got %d", len(tagged))
	}

	var (
		kind    Kind
		payload json.RawMessage
	)
	for k, v := range tagged {
		kind, payload = k, v
	}
	t, err := decodeVariant(kind, payload)
	if err != nil {
		return nil, fmt.Errorf("decode action type %s: %w", kind, err)
	}
	return t, nil
}

func decodeVariant(kind Kind, payload []byte) (Type, error) {
	switch kind {
	case KindCreateNote, KindEditNote:
		var note notebook.NoteData
		if err := json.Unmarshal(payload, &note); err != nil {
			return nil, err
		}
		if kind == KindCreateNote {
			return CreateNote{Note: note}, nil
		}
		return EditNote{Note: note}, nil

	case KindCreateHighlight, KindEditHighlight:
		var cat notebook.HighlightCategory
		if err := json.Unmarshal(payload, &cat); err != nil {
			return nil, err
		}
		if kind == KindCreateHighlight {
			return CreateHighlight{Category: cat}, nil
		}
		return EditHighlight{Category: cat}, nil

	case KindDeleteNote, KindDeleteHighlight:
		var id string
		if err := json.Unmarshal(payload, &id); err != nil {
			return nil, err
		}
		if kind == KindDeleteNote {
			return DeleteNote{ID: id}, nil
		}
		return DeleteHighlight{ID: id}, nil

	case KindHighlight:
		var h Highlight
		err := json.Unmarshal(payload, &h)
		return h, err

	case KindErase:
		var e Erase
		err := json.Unmarshal(payload, &e)
		return e, err

	case KindEditNoteLocations:
		var e EditNoteLocations
		err := json.Unmarshal(payload, &e)
		return e, err

	default:
		return nil, errors.New("unknown variant")
	}
}
