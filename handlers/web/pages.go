package web

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"mailquill/compose"
	"mailquill/handlers"
	"mailquill/handlers/api"
	"mailquill/history"
	"mailquill/middleware"
	"mailquill/workflow"

	"github.com/gofiber/fiber/v2"
)

// PageHandler renders the compose, templates and history pages and handles
// their plain form posts. Every post redirects back to a page.
type PageHandler struct {
	registry  *workflow.Registry
	generator *workflow.Generator
}

// NewPageHandler creates a new page handler
func NewPageHandler(registry *workflow.Registry, generator *workflow.Generator) *PageHandler {
	return &PageHandler{registry: registry, generator: generator}
}

func variationChoices() []int {
	choices := make([]int, 0, compose.MaxVariations)
	for n := compose.MinVariations; n <= compose.MaxVariations; n++ {
		choices = append(choices, n)
	}
	return choices
}

func (h *PageHandler) render(c *fiber.Ctx, name string, st workflow.State, extra fiber.Map) error {
	data := fiber.Map{
		"Localizer": middleware.Localizer(c),
		"Lang":      middleware.Lang(c),
		"CSRF":      middleware.CSRFToken(c),
		"State":     st,
		"View":      string(st.View),
		"DarkMode":  st.DarkMode,
		"Tones":     compose.Tones,
	}
	for k, v := range extra {
		data[k] = v
	}
	return c.Render(name, data)
}

// show switches the client's view and returns the resulting state.
func (h *PageHandler) show(c *fiber.Ctx, view workflow.View) (workflow.State, error) {
	store, err := api.Store(c, h.registry)
	if err != nil {
		return workflow.State{}, err
	}
	st, err := store.Dispatch(workflow.SetView{View: view})
	if err != nil {
		return st, handlers.WorkflowError(err)
	}
	return st, nil
}

// ShowCompose renders the editor and the current drafts
func (h *PageHandler) ShowCompose(c *fiber.Ctx) error {
	st, err := h.show(c, workflow.ViewCompose)
	if err != nil {
		return err
	}
	selected, _ := st.SelectedResult()
	return h.render(c, "compose", st, fiber.Map{
		"Template":         st.Template(),
		"Lengths":          compose.Lengths,
		"VariationChoices": variationChoices(),
		"SelectedText":     selected,
	})
}

// ShowTemplates renders the template catalog
func (h *PageHandler) ShowTemplates(c *fiber.Ctx) error {
	st, err := h.show(c, workflow.ViewTemplates)
	if err != nil {
		return err
	}
	return h.render(c, "templates", st, fiber.Map{
		"Templates": compose.Templates(),
	})
}

// ShowHistory renders the history list filtered by ?q= and ?tone=
func (h *PageHandler) ShowHistory(c *fiber.Ctx) error {
	st, err := h.show(c, workflow.ViewHistory)
	if err != nil {
		return err
	}
	query := c.Query("q")
	tone := c.Query("tone", history.AllTones)
	return h.render(c, "history", st, fiber.Map{
		"Entries":    history.Search(st.History, query, tone),
		"Query":      query,
		"ToneFilter": tone,
	})
}

// HandleGenerate saves the submitted form and generates drafts.
func (h *PageHandler) HandleGenerate(c *fiber.Ctx) error {
	store, err := h.applyForm(c)
	if err != nil {
		return err
	}
	_, err = h.generator.Generate(c.UserContext(), store, api.Apology(c))
	return h.redirect(c, "/", err)
}

// HandleSubject saves the submitted form and suggests a subject line.
func (h *PageHandler) HandleSubject(c *fiber.Ctx) error {
	store, err := h.applyForm(c)
	if err != nil {
		return err
	}
	_, err = h.generator.GenerateSubject(c.UserContext(), store)
	return h.redirect(c, "/", err)
}

// HandleClearTemplate saves the submitted form without the template.
func (h *PageHandler) HandleClearTemplate(c *fiber.Ctx) error {
	store, err := h.applyForm(c)
	if err != nil {
		return err
	}
	_, err = store.Dispatch(workflow.ClearTemplate{})
	return h.redirect(c, "/", err)
}

// HandleSelectVariation shows another of the generated drafts.
func (h *PageHandler) HandleSelectVariation(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid variation")
	}
	return h.dispatch(c, workflow.SelectVariation{Index: index}, "/")
}

// HandleThreadUpload imports a .txt file as the thread context.
func (h *PageHandler) HandleThreadUpload(c *fiber.Ctx) error {
	text, err := api.ReadThreadFile(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, workflow.SetThread{Text: text}, "/")
}

// HandleSelectTemplate picks a template and returns to the editor.
func (h *PageHandler) HandleSelectTemplate(c *fiber.Ctx) error {
	return h.dispatch(c, workflow.SelectTemplate{ID: c.Params("id")}, "/")
}

// HandleRestore loads a history entry into the editor.
func (h *PageHandler) HandleRestore(c *fiber.Ctx) error {
	return h.dispatch(c, workflow.RestoreHistory{ID: c.Params("id")}, "/")
}

// HandleDelete removes a history entry.
func (h *PageHandler) HandleDelete(c *fiber.Ctx) error {
	return h.dispatch(c, workflow.RemoveHistory{ID: c.Params("id")}, "/history")
}

// HandleClear removes every history entry.
func (h *PageHandler) HandleClear(c *fiber.Ctx) error {
	return h.dispatch(c, workflow.ClearHistory{}, "/history")
}

// HandleToggleDarkMode flips the dark-mode preference.
func (h *PageHandler) HandleToggleDarkMode(c *fiber.Ctx) error {
	store, err := api.Store(c, h.registry)
	if err != nil {
		return err
	}
	_, err = store.Dispatch(workflow.SetDarkMode{On: !store.State().DarkMode})
	return h.redirect(c, backTo(c.Get(fiber.HeaderReferer)), err)
}

// backTo returns the local path of referer, or "/".
func backTo(referer string) string {
	u, err := url.Parse(referer)
	if err != nil || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func (h *PageHandler) applyForm(c *fiber.Ctx) (*workflow.Store, error) {
	store, err := api.Store(c, h.registry)
	if err != nil {
		return nil, err
	}
	var edits workflow.Edits
	if err := c.BodyParser(&edits); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid form")
	}
	// A form without a template field means no template is selected
	if edits.TemplateID == nil {
		none := ""
		edits.TemplateID = &none
	}
	if _, err := workflow.ApplyEdits(store, edits); err != nil {
		return nil, handlers.WorkflowError(err)
	}
	return store, nil
}

func (h *PageHandler) dispatch(c *fiber.Ctx, a workflow.Action, to string) error {
	store, err := api.Store(c, h.registry)
	if err != nil {
		return err
	}
	_, err = store.Dispatch(a)
	return h.redirect(c, to, err)
}

// redirect goes back to a page. Refusals the disabled buttons already
// prevent are ignored; other errors are shown.
func (h *PageHandler) redirect(c *fiber.Ctx, to string, err error) error {
	if err != nil && !errors.Is(err, workflow.ErrBusy) && !errors.Is(err, workflow.ErrEmptyContent) {
		return handlers.WorkflowError(err)
	}
	return c.Redirect(to, fiber.StatusSeeOther)
}
