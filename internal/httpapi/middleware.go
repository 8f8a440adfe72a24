package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"

	"github.com/dataexplorer/core/internal/mlog"
)

const headerCorrelationID = "X-Correlation-Id"

// WithCorrelationID stamps every request with a correlation id, generating
// one when the caller didn't supply it.
func WithCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := c.Get(headerCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}

		c.Set(headerCorrelationID, cid)

		return c.Next()
	}
}

// WithCORS enables cross-origin requests for the frontend module shell.
func WithCORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		AllowHeaders:     "Accept, Content-Type, Content-Length, Authorization, " + headerCorrelationID,
		AllowCredentials: false,
	})
}

// WithLogging logs one line per request and attaches a correlation-scoped
// logger to the request context, mirroring the teacher's access-log
// middleware.
func WithLogging(logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}

		start := time.Now()
		scoped := logger.WithFields("correlation_id", c.Get(headerCorrelationID))

		ctx := mlog.ContextWithLogger(c.Context(), scoped)
		c.SetUserContext(ctx)

		err := c.Next()

		scoped.Infof("%s %s -> %d (%s)", c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))

		return err
	}
}
