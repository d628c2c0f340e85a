package api

import (
	"errors"
	"strings"

	"mailquill/llm"
	"mailquill/utils"

	"github.com/gofiber/fiber/v2"
)

// ProxyRequest is the body of POST /api/groq.
type ProxyRequest struct {
	Prompt string `json:"prompt"`
}

// ProxyHandler forwards a single prompt to the completion service. The
// credential stays on the server.
type ProxyHandler struct {
	completer llm.Completer
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(completer llm.Completer) *ProxyHandler {
	return &ProxyHandler{completer: completer}
}

// HandleGenerate answers 200 {content}, 400 for a missing prompt, 500 for a
// missing credential or unusable upstream answer, and the upstream status
// with {error} when the service refuses.
func (h *ProxyHandler) HandleGenerate(c *fiber.Ctx) error {
	var req ProxyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return utils.BadRequestError("Prompt is required", nil)
	}

	content, err := h.completer.Generate(c.UserContext(), req.Prompt)
	if err != nil {
		return proxyError(err)
	}

	return c.JSON(fiber.Map{
		"content": content,
	})
}

func proxyError(err error) error {
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		return utils.InternalServerError("Completion service is not configured", err)
	case errors.Is(err, llm.ErrInvalidResponse):
		return utils.InternalServerError("Invalid response from completion service", err)
	}
	if status := llm.StatusCode(err); status != 0 {
		return utils.NewAppError(status, "Completion service error", err).WithContext("upstream_status", status)
	}
	return utils.InternalServerError("Failed to generate response", err)
}
