// Package handlers holds what the API and web handlers share.
package handlers

import (
	"errors"
	"strings"

	"mailquill/middleware"
	"mailquill/utils"
	"mailquill/workflow"

	"github.com/gofiber/fiber/v2"
)

// IsAPIRequest reports whether the request expects a JSON response.
func IsAPIRequest(c *fiber.Ctx) bool {
	if c == nil {
		return false
	}
	return strings.HasPrefix(c.Path(), "/api") || strings.HasPrefix(c.Path(), "/ws")
}

// WorkflowError maps workflow refusals to HTTP errors.
func WorkflowError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, workflow.ErrBusy):
		return utils.ConflictError("A generation is already in progress", err)
	case errors.Is(err, workflow.ErrEmptyContent):
		return utils.UnprocessableError("Enter some content or choose a template first", err)
	case errors.Is(err, workflow.ErrNotFound):
		return utils.NotFoundError("History entry not found", err)
	case errors.Is(err, workflow.ErrInvalid):
		return utils.BadRequestError(err.Error(), err)
	}
	return utils.InternalServerError("Unexpected workflow error", err)
}

// ErrorHandler renders errors as {error} JSON for API requests and as the
// error page otherwise. Only the user-facing message is sent.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := ""

	var appErr *utils.AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		if code >= fiber.StatusInternalServerError {
			utils.Log.WithFields(appErr.Context).Error("Application error: %v", appErr)
		} else {
			utils.Log.Debug("Request refused (%d): %v", code, appErr)
		}
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	default:
		utils.Log.Error("Unhandled error on %s: %v", c.Path(), err)
	}

	if message == "" || code == fiber.StatusInternalServerError && appErr == nil {
		message = utils.T(middleware.Localizer(c), "error_500")
	}

	if IsAPIRequest(c) {
		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}

	return c.Status(code).Render("error", fiber.Map{
		"Error":     message,
		"Code":      code,
		"Localizer": middleware.Localizer(c),
		"Lang":      middleware.Lang(c),
		"CSRF":      middleware.CSRFToken(c),
		"View":      "",
		"DarkMode":  false,
	})
}

// NotFound is the catch-all handler for unknown routes.
func NotFound(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, utils.T(middleware.Localizer(c), "error_404"))
}
