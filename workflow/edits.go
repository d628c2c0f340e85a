package workflow

import (
	"mailquill/compose"
)

// Edits is a batch of editing-field changes submitted together, as from a
// form or a JSON body. Nil fields are left alone. An empty TemplateID clears
// the template.
type Edits struct {
	Input         *string `json:"input" form:"input"`
	Tone          *string `json:"tone" form:"tone"`
	Length        *string `json:"length" form:"length"`
	Variations    *int    `json:"variations" form:"variations"`
	TemplateID    *string `json:"template_id" form:"template_id"`
	OriginalEmail *string `json:"original_email" form:"original_email"`
	Thread        *string `json:"thread" form:"thread"`
	Subject       *string `json:"subject" form:"subject"`
}

// Actions returns the actions equivalent to e, in field order.
func (e Edits) Actions() []Action {
	var actions []Action
	if e.Input != nil {
		actions = append(actions, SetInput{Text: *e.Input})
	}
	if e.Tone != nil {
		actions = append(actions, SetTone{Tone: compose.Tone(*e.Tone)})
	}
	if e.Length != nil {
		actions = append(actions, SetLength{Length: compose.Length(*e.Length)})
	}
	if e.Variations != nil {
		actions = append(actions, SetVariations{Count: *e.Variations})
	}
	if e.TemplateID != nil {
		if *e.TemplateID == "" {
			actions = append(actions, ClearTemplate{})
		} else {
			actions = append(actions, SelectTemplate{ID: *e.TemplateID})
		}
	}
	if e.OriginalEmail != nil {
		actions = append(actions, SetOriginalEmail{Text: *e.OriginalEmail})
	}
	if e.Thread != nil {
		actions = append(actions, SetThread{Text: *e.Thread})
	}
	if e.Subject != nil {
		actions = append(actions, SetSubject{Text: *e.Subject})
	}
	return actions
}

// ApplyEdits validates every edit against the current state and then
// dispatches them. Nothing is applied if any edit is invalid.
func ApplyEdits(store *Store, e Edits) (State, error) {
	actions := e.Actions()

	st := store.State()
	for _, a := range actions {
		var err error
		if st, err = Reduce(st, a); err != nil {
			return store.State(), err
		}
	}

	for _, a := range actions {
		var err error
		if st, err = store.Dispatch(a); err != nil {
			return st, err
		}
	}
	return store.State(), nil
}
