// Package workflow holds a client's editing state and drives generations.
//
// State changes only through Reduce. A Store owns one client's State,
// serialises dispatches, persists history and preferences after the actions
// that change them, and notifies subscribers. The Generator runs the
// completion calls between dispatches.
package workflow

import (
	"encoding/json"
	"fmt"

	"mailquill/compose"
	"mailquill/models"
)

// View is the screen the user is looking at.
type View string

const (
	ViewCompose   View = "compose"
	ViewTemplates View = "templates"
	ViewHistory   View = "history"
)

func parseView(v View) error {
	switch v {
	case ViewCompose, ViewTemplates, ViewHistory:
		return nil
	}
	return fmt.Errorf("%w: unknown view %q", ErrInvalid, v)
}

// PhaseKind tags a Phase.
type PhaseKind int

const (
	PhaseIdle PhaseKind = iota
	PhaseRunning
	PhaseFailed
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseRunning:
		return "running"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Phase is the status of one independent action. Done and Total are only
// meaningful while running; Reason only when failed.
type Phase struct {
	Kind   PhaseKind
	Done   int
	Total  int
	Reason string
}

func idle() Phase                { return Phase{Kind: PhaseIdle} }
func running(total int) Phase    { return Phase{Kind: PhaseRunning, Total: total} }
func failed(reason string) Phase { return Phase{Kind: PhaseFailed, Reason: reason} }
func (p Phase) Running() bool    { return p.Kind == PhaseRunning }
func (p Phase) Failed() bool     { return p.Kind == PhaseFailed }

func (p Phase) MarshalJSON() ([]byte, error) {
	out := struct {
		Status string `json:"status"`
		Done   int    `json:"done,omitempty"`
		Total  int    `json:"total,omitempty"`
		Reason string `json:"reason,omitempty"`
	}{Status: p.Kind.String(), Reason: p.Reason}
	if p.Running() {
		out.Done, out.Total = p.Done, p.Total
	}
	return json.Marshal(out)
}

// State is everything one client sees and edits.
type State struct {
	Input         string         `json:"input"`
	Tone          compose.Tone   `json:"tone"`
	Length        compose.Length `json:"length"`
	Variations    int            `json:"variations"`
	TemplateID    string         `json:"template_id,omitempty"`
	OriginalEmail string         `json:"original_email"`
	Thread        string         `json:"thread"`
	Subject       string         `json:"subject"`

	Results  []string `json:"results"`
	Selected int      `json:"selected"`
	View     View     `json:"view"`

	History  []models.HistoryItem `json:"history"`
	DarkMode bool                 `json:"dark_mode"`

	Generation   Phase `json:"generation"`
	SubjectPhase Phase `json:"subject_generation"`

	// HistoryLimit caps the history length; 0 keeps everything.
	HistoryLimit int `json:"-"`
}

// NewState returns the state a new client starts with.
func NewState() State {
	return State{
		Tone:       compose.ToneProfessional,
		Length:     compose.LengthStandard,
		Variations: 1,
		View:       ViewCompose,
	}
}

// Template returns the selected template, if any.
func (s State) Template() *models.Template {
	if s.TemplateID == "" {
		return nil
	}
	t, ok := compose.TemplateByID(s.TemplateID)
	if !ok {
		return nil
	}
	return &t
}

// Request snapshots the editing fields into a generation request.
func (s State) Request() compose.Request {
	return compose.Request{
		Content:       s.Input,
		Tone:          s.Tone,
		Length:        s.Length,
		Variations:    s.Variations,
		OriginalEmail: s.OriginalEmail,
		Thread:        s.Thread,
		Template:      s.Template(),
	}
}

// SelectedResult returns the draft currently shown, if any.
func (s State) SelectedResult() (string, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Results) {
		return "", false
	}
	return s.Results[s.Selected], true
}
