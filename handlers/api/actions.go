package api

import (
	"fmt"

	"mailquill/compose"
	"mailquill/workflow"
)

// Action types the browser may send. Generation progress actions are
// internal and cannot be sent.
const (
	ActionSetInput         = "set_input"
	ActionSetTone          = "set_tone"
	ActionSetLength        = "set_length"
	ActionSetVariations    = "set_variations"
	ActionSelectTemplate   = "select_template"
	ActionClearTemplate    = "clear_template"
	ActionSetOriginalEmail = "set_original_email"
	ActionSetThread        = "set_thread"
	ActionSetSubject       = "set_subject"
	ActionSelectVariation  = "select_variation"
	ActionSetView          = "set_view"
	ActionSetDarkMode      = "set_dark_mode"
	ActionRemoveHistory    = "remove_history"
	ActionClearHistory     = "clear_history"
	ActionRestoreHistory   = "restore_history"

	// Handled by the generator rather than the reducer
	ActionGenerate        = "generate"
	ActionGenerateSubject = "generate_subject"
)

// ActionRequest is one UI action as JSON. Which fields matter depends on Type.
type ActionRequest struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Count int    `json:"count,omitempty"`
	Index int    `json:"index,omitempty"`
	On    bool   `json:"on,omitempty"`
}

// Action converts the request into a workflow action.
func (r ActionRequest) Action() (workflow.Action, error) {
	switch r.Type {
	case ActionSetInput:
		return workflow.SetInput{Text: r.Text}, nil
	case ActionSetTone:
		return workflow.SetTone{Tone: compose.Tone(r.Text)}, nil
	case ActionSetLength:
		return workflow.SetLength{Length: compose.Length(r.Text)}, nil
	case ActionSetVariations:
		return workflow.SetVariations{Count: r.Count}, nil
	case ActionSelectTemplate:
		return workflow.SelectTemplate{ID: r.ID}, nil
	case ActionClearTemplate:
		return workflow.ClearTemplate{}, nil
	case ActionSetOriginalEmail:
		return workflow.SetOriginalEmail{Text: r.Text}, nil
	case ActionSetThread:
		return workflow.SetThread{Text: r.Text}, nil
	case ActionSetSubject:
		return workflow.SetSubject{Text: r.Text}, nil
	case ActionSelectVariation:
		return workflow.SelectVariation{Index: r.Index}, nil
	case ActionSetView:
		return workflow.SetView{View: workflow.View(r.Text)}, nil
	case ActionSetDarkMode:
		return workflow.SetDarkMode{On: r.On}, nil
	case ActionRemoveHistory:
		return workflow.RemoveHistory{ID: r.ID}, nil
	case ActionClearHistory:
		return workflow.ClearHistory{}, nil
	case ActionRestoreHistory:
		return workflow.RestoreHistory{ID: r.ID}, nil
	}
	return nil, fmt.Errorf("%w: unknown action type %q", workflow.ErrInvalid, r.Type)
}
