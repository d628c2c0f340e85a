package api

import (
	"io"
	"strconv"
	"strings"

	"mailquill/compose"
	"mailquill/handlers"
	"mailquill/history"
	"mailquill/middleware"
	"mailquill/models"
	"mailquill/utils"
	"mailquill/workflow"

	"github.com/gofiber/fiber/v2"
)

// WorkflowHandler exposes a client's drafting state as JSON.
type WorkflowHandler struct {
	registry  *workflow.Registry
	generator *workflow.Generator
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(registry *workflow.Registry, generator *workflow.Generator) *WorkflowHandler {
	return &WorkflowHandler{registry: registry, generator: generator}
}

// Store returns the calling client's store.
func Store(c *fiber.Ctx, registry *workflow.Registry) (*workflow.Store, error) {
	clientID := middleware.ClientID(c)
	if clientID == "" {
		return nil, utils.UnauthorizedError("Missing client identity", nil)
	}
	store, err := registry.Get(clientID)
	if err != nil {
		return nil, utils.InternalServerError("Failed to load client state", err)
	}
	return store, nil
}

// Apology is the localized text shown when a generation fails.
func Apology(c *fiber.Ctx) string {
	return utils.T(middleware.Localizer(c), "generation_failed")
}

// GetState returns the full client state.
func (h *WorkflowHandler) GetState(c *fiber.Ctx) error {
	store, err := Store(c, h.registry)
	if err != nil {
		return err
	}
	return c.JSON(store.State())
}

// HandleAction applies one UI action and returns the new state.
func (h *WorkflowHandler) HandleAction(c *fiber.Ctx) error {
	var req ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid action", err)
	}

	store, err := Store(c, h.registry)
	if err != nil {
		return err
	}

	var st workflow.State
	switch req.Type {
	case ActionGenerate:
		st, err = h.generator.Generate(c.UserContext(), store, Apology(c))
	case ActionGenerateSubject:
		st, err = h.generator.GenerateSubject(c.UserContext(), store)
	default:
		action, aerr := req.Action()
		if aerr != nil {
			return handlers.WorkflowError(aerr)
		}
		st, err = store.Dispatch(action)
	}
	if err != nil {
		return handlers.WorkflowError(err)
	}
	return c.JSON(st)
}

// HandleGenerate applies the optional edits in the body, then generates the
// configured number of variations. A failed generation still answers 200;
// the state carries the failure.
func (h *WorkflowHandler) HandleGenerate(c *fiber.Ctx) error {
	store, err := h.storeWithEdits(c)
	if err != nil {
		return err
	}
	st, err := h.generator.Generate(c.UserContext(), store, Apology(c))
	if err != nil {
		return handlers.WorkflowError(err)
	}
	return c.JSON(st)
}

// HandleSubject applies the optional edits in the body, then asks for a
// subject line.
func (h *WorkflowHandler) HandleSubject(c *fiber.Ctx) error {
	store, err := h.storeWithEdits(c)
	if err != nil {
		return err
	}
	st, err := h.generator.GenerateSubject(c.UserContext(), store)
	if err != nil {
		return handlers.WorkflowError(err)
	}
	return c.JSON(st)
}

func (h *WorkflowHandler) storeWithEdits(c *fiber.Ctx) (*workflow.Store, error) {
	store, err := Store(c, h.registry)
	if err != nil {
		return nil, err
	}
	if len(c.Body()) == 0 {
		return store, nil
	}
	var edits workflow.Edits
	if err := c.BodyParser(&edits); err != nil {
		return nil, utils.BadRequestError("Invalid request body", err)
	}
	if _, err := workflow.ApplyEdits(store, edits); err != nil {
		return nil, handlers.WorkflowError(err)
	}
	return store, nil
}

// GetTemplates lists the template catalog.
func (h *WorkflowHandler) GetTemplates(c *fiber.Ctx) error {
	return c.JSON(compose.Templates())
}

// GetHistory lists history entries matching ?q= and ?tone=.
func (h *WorkflowHandler) GetHistory(c *fiber.Ctx) error {
	tone := c.Query("tone", history.AllTones)
	if tone != history.AllTones && tone != "" {
		if _, err := compose.ParseTone(tone); err != nil {
			return utils.BadRequestError("Unknown tone", err)
		}
	}

	store, err := Store(c, h.registry)
	if err != nil {
		return err
	}
	return c.JSON(history.Search(store.State().History, c.Query("q"), tone))
}

// DeleteHistory removes one entry. Removing a missing entry succeeds.
func (h *WorkflowHandler) DeleteHistory(c *fiber.Ctx) error {
	return h.dispatch(c, workflow.RemoveHistory{ID: c.Params("id")})
}

// ClearHistory removes every entry.
func (h *WorkflowHandler) ClearHistory(c *fiber.Ctx) error {
	return h.dispatch(c, workflow.ClearHistory{})
}

// RestoreHistory loads an entry back into the editor.
func (h *WorkflowHandler) RestoreHistory(c *fiber.Ctx) error {
	return h.dispatch(c, workflow.RestoreHistory{ID: c.Params("id")})
}

// GetPreferences returns the persisted preferences.
func (h *WorkflowHandler) GetPreferences(c *fiber.Ctx) error {
	store, err := Store(c, h.registry)
	if err != nil {
		return err
	}
	return c.JSON(models.Preferences{DarkMode: store.State().DarkMode})
}

// UpdatePreferences replaces the persisted preferences.
func (h *WorkflowHandler) UpdatePreferences(c *fiber.Ctx) error {
	var prefs models.Preferences
	if err := c.BodyParser(&prefs); err != nil {
		return utils.BadRequestError("Invalid preferences", err)
	}
	store, err := Store(c, h.registry)
	if err != nil {
		return err
	}
	st, err := store.Dispatch(workflow.SetDarkMode{On: prefs.DarkMode})
	if err != nil {
		return handlers.WorkflowError(err)
	}
	return c.JSON(models.Preferences{DarkMode: st.DarkMode})
}

// UploadThread reads a plain-text file and uses its content verbatim as the
// thread context.
func (h *WorkflowHandler) UploadThread(c *fiber.Ctx) error {
	text, err := ReadThreadFile(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, workflow.SetThread{Text: text})
}

// ReadThreadFile returns the content of the "file" form field, which must be
// a plain-text file.
func ReadThreadFile(c *fiber.Ctx) (string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", utils.BadRequestError("A .txt file is required", err)
	}
	contentType := fh.Header.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(contentType, fiber.MIMETextPlain) && !strings.HasSuffix(strings.ToLower(fh.Filename), ".txt") {
		return "", utils.BadRequestError("Only plain-text files can be imported", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return "", utils.InternalServerError("Failed to open uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", utils.InternalServerError("Failed to read uploaded file", err)
	}
	return string(data), nil
}

// GetCopyText returns the clipboard text for ?index= (default: the selected
// variation), with the subject line prepended when one is set.
func (h *WorkflowHandler) GetCopyText(c *fiber.Ctx) error {
	store, err := Store(c, h.registry)
	if err != nil {
		return err
	}
	st := store.State()

	index := st.Selected
	if raw := c.Query("index"); raw != "" {
		index, err = strconv.Atoi(raw)
		if err != nil {
			return utils.BadRequestError("Invalid index", err)
		}
	}
	if index < 0 || index >= len(st.Results) {
		return utils.NotFoundError("No draft to copy", nil)
	}

	return c.JSON(fiber.Map{
		"text": compose.ClipboardText(st.Subject, st.Results[index]),
	})
}

func (h *WorkflowHandler) dispatch(c *fiber.Ctx, a workflow.Action) error {
	store, err := Store(c, h.registry)
	if err != nil {
		return err
	}
	st, err := store.Dispatch(a)
	if err != nil {
		return handlers.WorkflowError(err)
	}
	return c.JSON(st)
}
