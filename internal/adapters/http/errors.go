package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bluebikes/internal/core/domain"
	"github.com/samirrijal/bluebikes/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, not_ready, conflict, internal_error
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

func errNotReady(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "not_ready", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errFromService maps report service errors to API errors.
func errFromService(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecases.ErrNoAnalysis):
		return errNotReady(c, "analysis has not completed yet")
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, usecases.ErrUnknownMetric), errors.Is(err, usecases.ErrInvalidBins):
		return errBadRequest(c, err.Error())
	case errors.Is(err, usecases.ErrReloadInProgress):
		return errConflict(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, err.Error())
	}
}
