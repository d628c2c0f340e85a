package workflow

import (
	"context"
	"strings"
	"time"

	"mailquill/compose"
	"mailquill/llm"
	"mailquill/models"
	"mailquill/utils"

	"github.com/google/uuid"
)

// DefaultApology replaces the drafts when a generation fails and the caller
// has no localized message.
const DefaultApology = "Sorry, there was an error generating your email. Please try again."

// Generator runs email and subject generations against a completion service.
type Generator struct {
	completer llm.Completer
	now       func() time.Time
	newID     func() string
}

// NewGenerator creates a Generator using c for completions.
func NewGenerator(c llm.Completer) *Generator {
	return &Generator{
		completer: c,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Generate produces the configured number of variations, one completion at a
// time, and records them in history. It returns an error only when the run
// is refused (ErrBusy, ErrEmptyContent). A failed completion ends the run
// with apology in place of the drafts and no history entry.
//
// Once started the run is not cancelled by ctx.
func (g *Generator) Generate(ctx context.Context, store *Store, apology string) (State, error) {
	run, err := g.StartGenerate(store, apology)
	if err != nil {
		return store.State(), err
	}
	return run(ctx), nil
}

// StartGenerate marks the generation as running and returns the function
// that performs it. Callers that do not want to wait run it in a goroutine.
func (g *Generator) StartGenerate(store *Store, apology string) (func(context.Context) State, error) {
	st, err := store.Dispatch(GenerationStarted{})
	if err != nil {
		return nil, err
	}
	if apology == "" {
		apology = DefaultApology
	}
	req := st.Request()

	return func(ctx context.Context) State {
		return g.runGenerate(context.WithoutCancel(ctx), store, req, apology)
	}, nil
}

func (g *Generator) runGenerate(ctx context.Context, store *Store, req compose.Request, apology string) State {
	log := utils.Log.WithField("client", store.ClientID())

	emails := make([]string, 0, req.Variations)
	for i := 1; i <= req.Variations; i++ {
		text, err := g.completer.Generate(ctx, compose.EmailPrompt(req, i))
		if err != nil {
			log.Error("Error generating variation %d of %d: %v", i, req.Variations, err)
			return g.finish(store, GenerationFailed{Reason: err.Error(), Message: apology})
		}
		emails = append(emails, strings.TrimSpace(text))
		if _, err := store.Dispatch(VariationCompleted{}); err != nil {
			log.Error("Error recording progress: %v", err)
		}
	}

	item := models.HistoryItem{
		ID:         g.newID(),
		Timestamp:  g.now(),
		Source:     req.Description(),
		Tone:       string(req.Tone),
		Length:     string(req.Length),
		Variations: len(emails),
		Emails:     emails,
	}
	if req.Template != nil {
		item.TemplateName = req.Template.Name
		item.TemplateID = req.Template.ID
	}

	log.Info("Generated %d variation(s)", len(emails))
	return g.finish(store, GenerationSucceeded{Emails: emails, Item: item})
}

// GenerateSubject asks for a subject line. It runs independently of Generate.
// A failure keeps the previous subject and marks the subject phase failed.
func (g *Generator) GenerateSubject(ctx context.Context, store *Store) (State, error) {
	run, err := g.StartSubject(store)
	if err != nil {
		return store.State(), err
	}
	return run(ctx), nil
}

// StartSubject marks subject generation as running and returns the function
// that performs it.
func (g *Generator) StartSubject(store *Store) (func(context.Context) State, error) {
	st, err := store.Dispatch(SubjectStarted{})
	if err != nil {
		return nil, err
	}
	req := st.Request()

	return func(ctx context.Context) State {
		text, err := g.completer.Generate(context.WithoutCancel(ctx), compose.SubjectPrompt(req))
		if err != nil {
			utils.Log.WithField("client", store.ClientID()).Error("Error generating subject: %v", err)
			return g.finish(store, SubjectFailed{Reason: err.Error()})
		}
		return g.finish(store, SubjectSucceeded{Subject: compose.CleanSubject(text)})
	}, nil
}

// finish dispatches a closing action. It only fails if the phase was not
// running, which the Start functions rule out.
func (g *Generator) finish(store *Store, a Action) State {
	st, err := store.Dispatch(a)
	if err != nil {
		utils.Log.WithField("client", store.ClientID()).Error("Error finishing %s: %v", a.actionName(), err)
	}
	return st
}
