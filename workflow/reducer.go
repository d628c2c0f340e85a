package workflow

import (
	"errors"
	"fmt"
	"strings"

	"mailquill/compose"
	"mailquill/history"
	"mailquill/models"
)

var (
	// ErrBusy is returned when the same action is already running.
	ErrBusy = errors.New("already in progress")
	// ErrEmptyContent is returned when there is no text and no template.
	ErrEmptyContent = errors.New("nothing to generate from")
	// ErrNotFound is returned for unknown history entries.
	ErrNotFound = errors.New("history entry not found")
	// ErrInvalid is returned for malformed actions.
	ErrInvalid = errors.New("invalid action")
	// ErrNotRunning is returned for progress actions outside a run.
	ErrNotRunning = errors.New("no generation in progress")
)

// NoSubject is recorded when a generation finishes without a subject line.
const NoSubject = "No subject"

// Action is a request to change State. See Reduce for the concrete types.
type Action interface {
	actionName() string
}

type (
	SetInput         struct{ Text string }
	SetTone          struct{ Tone compose.Tone }
	SetLength        struct{ Length compose.Length }
	SetVariations    struct{ Count int }
	SelectTemplate   struct{ ID string }
	ClearTemplate    struct{}
	SetOriginalEmail struct{ Text string }
	SetThread        struct{ Text string }
	SetSubject       struct{ Text string }
	SelectVariation  struct{ Index int }
	SetView          struct{ View View }
	SetDarkMode      struct{ On bool }

	GenerationStarted   struct{}
	VariationCompleted  struct{}
	GenerationSucceeded struct {
		Emails []string
		Item   models.HistoryItem
	}
	GenerationFailed struct {
		Reason  string
		Message string // shown in place of the drafts
	}

	SubjectStarted   struct{}
	SubjectSucceeded struct{ Subject string }
	SubjectFailed    struct{ Reason string }

	RemoveHistory  struct{ ID string }
	ClearHistory   struct{}
	RestoreHistory struct{ ID string }
)

func (SetInput) actionName() string            { return "set_input" }
func (SetTone) actionName() string             { return "set_tone" }
func (SetLength) actionName() string           { return "set_length" }
func (SetVariations) actionName() string       { return "set_variations" }
func (SelectTemplate) actionName() string      { return "select_template" }
func (ClearTemplate) actionName() string       { return "clear_template" }
func (SetOriginalEmail) actionName() string    { return "set_original_email" }
func (SetThread) actionName() string           { return "set_thread" }
func (SetSubject) actionName() string          { return "set_subject" }
func (SelectVariation) actionName() string     { return "select_variation" }
func (SetView) actionName() string             { return "set_view" }
func (SetDarkMode) actionName() string         { return "set_dark_mode" }
func (GenerationStarted) actionName() string   { return "generation_started" }
func (VariationCompleted) actionName() string  { return "variation_completed" }
func (GenerationSucceeded) actionName() string { return "generation_succeeded" }
func (GenerationFailed) actionName() string    { return "generation_failed" }
func (SubjectStarted) actionName() string      { return "subject_started" }
func (SubjectSucceeded) actionName() string    { return "subject_succeeded" }
func (SubjectFailed) actionName() string       { return "subject_failed" }
func (RemoveHistory) actionName() string       { return "remove_history" }
func (ClearHistory) actionName() string        { return "clear_history" }
func (RestoreHistory) actionName() string      { return "restore_history" }

// Reduce applies a to s. It never modifies slices held by s; on error the
// returned state equals s.
func Reduce(s State, a Action) (State, error) {
	switch a := a.(type) {
	case SetInput:
		s.Input = a.Text
	case SetTone:
		if _, err := compose.ParseTone(string(a.Tone)); err != nil {
			return s, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		s.Tone = a.Tone
	case SetLength:
		if _, err := compose.ParseLength(string(a.Length)); err != nil {
			return s, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		s.Length = a.Length
	case SetVariations:
		if !compose.ValidVariations(a.Count) {
			return s, fmt.Errorf("%w: variations must be between %d and %d", ErrInvalid, compose.MinVariations, compose.MaxVariations)
		}
		s.Variations = a.Count
	case SelectTemplate:
		if _, ok := compose.TemplateByID(a.ID); !ok {
			return s, fmt.Errorf("%w: unknown template %q", ErrInvalid, a.ID)
		}
		s.TemplateID = a.ID
		s.View = ViewCompose
	case ClearTemplate:
		s.TemplateID = ""
	case SetOriginalEmail:
		s.OriginalEmail = a.Text
	case SetThread:
		s.Thread = a.Text
	case SetSubject:
		s.Subject = a.Text
	case SelectVariation:
		if a.Index < 0 || a.Index >= len(s.Results) {
			return s, fmt.Errorf("%w: no variation %d", ErrInvalid, a.Index)
		}
		s.Selected = a.Index
	case SetView:
		if err := parseView(a.View); err != nil {
			return s, err
		}
		s.View = a.View
	case SetDarkMode:
		s.DarkMode = a.On

	case GenerationStarted:
		if s.Generation.Running() {
			return s, ErrBusy
		}
		if s.Request().Empty() {
			return s, ErrEmptyContent
		}
		s.Results = nil
		s.Selected = 0
		s.Generation = running(s.Variations)
	case VariationCompleted:
		if !s.Generation.Running() {
			return s, ErrNotRunning
		}
		s.Generation.Done++
	case GenerationSucceeded:
		if !s.Generation.Running() {
			return s, ErrNotRunning
		}
		if len(a.Emails) != a.Item.Variations || len(a.Item.Emails) != a.Item.Variations {
			return s, fmt.Errorf("%w: %d drafts for %d variations", ErrInvalid, len(a.Emails), a.Item.Variations)
		}
		item := a.Item
		if item.SubjectLine == "" {
			item.SubjectLine = s.Subject
		}
		if item.SubjectLine == "" {
			item.SubjectLine = NoSubject
		}
		s.Results = a.Emails
		s.Selected = 0
		s.History = history.Prepend(s.History, item, s.HistoryLimit)
		s.Generation = idle()
	case GenerationFailed:
		if !s.Generation.Running() {
			return s, ErrNotRunning
		}
		s.Results = []string{a.Message}
		s.Selected = 0
		s.Generation = failed(a.Reason)

	case SubjectStarted:
		if s.SubjectPhase.Running() {
			return s, ErrBusy
		}
		if s.Request().Empty() {
			return s, ErrEmptyContent
		}
		s.SubjectPhase = running(1)
	case SubjectSucceeded:
		if !s.SubjectPhase.Running() {
			return s, ErrNotRunning
		}
		s.Subject = a.Subject
		s.SubjectPhase = idle()
	case SubjectFailed:
		if !s.SubjectPhase.Running() {
			return s, ErrNotRunning
		}
		s.SubjectPhase = failed(a.Reason)

	case RemoveHistory:
		s.History = history.Remove(s.History, a.ID)
	case ClearHistory:
		s.History = nil
	case RestoreHistory:
		item, ok := history.Find(s.History, a.ID)
		if !ok {
			return s, ErrNotFound
		}
		return restore(s, item), nil

	default:
		return s, fmt.Errorf("%w: %T", ErrInvalid, a)
	}
	return s, nil
}

// restore copies a history entry back into the editing state.
func restore(s State, item models.HistoryItem) State {
	tpl, ok := compose.TemplateByID(item.TemplateID)
	if !ok && item.TemplateName != "" {
		tpl, ok = compose.TemplateByName(item.TemplateName)
	}
	switch {
	case ok:
		s.TemplateID = tpl.ID
		s.Input = ""
	case strings.HasPrefix(item.Source, compose.TemplateSourcePrefix):
		// The template is gone; its description is not free text
		s.TemplateID = ""
		s.Input = ""
	default:
		s.TemplateID = ""
		s.Input = item.Source
	}

	if t, err := compose.ParseTone(item.Tone); err == nil {
		s.Tone = t
	}
	if l, err := compose.ParseLength(item.Length); err == nil {
		s.Length = l
	}
	s.Subject = item.SubjectLine
	s.Results = append([]string(nil), item.Emails...)
	s.Selected = 0
	s.View = ViewCompose
	return s
}
