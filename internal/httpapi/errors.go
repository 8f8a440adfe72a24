// Package httpapi wires the three HTTP route groups of spec.md §6
// (module federation, knowledge-graph cache, conversational agent) onto
// Fiber routes, translating apperr.Kind to status codes per §7's table.
// Grounded on the teacher's common/net/http error-mapping convention
// (WithError dispatching on error type to a status+body helper),
// generalized here to a single Kind switch since this runtime carries
// one AppError type rather than a family of business error types.
package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dataexplorer/core/internal/apperr"
)

// WithError maps err to the HTTP status/body spec.md §7 assigns to its
// Kind. Anything not an *AppError is promoted to ErrInternal, logged
// with full context by the caller, and returned with an opaque body.
func WithError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)

	status := statusForKind(kind)

	body := fiber.Map{"error": kind.String(), "message": err.Error()}

	if status == fiber.StatusInternalServerError {
		body["message"] = "internal error"
	}

	return c.Status(status).JSON(body)
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindForbiddenStatement, apperr.KindQueryInvalid:
		return fiber.StatusBadRequest
	case apperr.KindBackendUnavailable:
		return fiber.StatusServiceUnavailable
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
