package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/dataexplorer/core/internal/agent"
	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/conversation"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// RegisterConversationRoutes mounts the conversational-agent surface of
// spec.md §6.
func RegisterConversationRoutes(app fiber.Router, store conversation.Store, orch *agent.Orchestrator) {
	const base = "/api/ai-assistant/conversations"

	app.Post(base, func(c *fiber.Ctx) error {
		var body struct {
			Context mmodel.Context `json:"context"`
		}

		if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
			return WithError(c, apperr.Wrap(apperr.KindQueryInvalid, "malformed request body", err))
		}

		session, err := store.Create(c.Context(), body.Context)
		if err != nil {
			return WithError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation_id": session.ID})
	})

	group := app.Group(base)

	group.Get("/:id", func(c *fiber.Ctx) error {
		session, err := store.Get(c.Context(), c.Params("id"))
		if err != nil {
			return WithError(c, err)
		}

		return c.JSON(session)
	})

	group.Get("/:id/context", func(c *fiber.Ctx) error {
		session, err := store.Get(c.Context(), c.Params("id"))
		if err != nil {
			return WithError(c, err)
		}

		return c.JSON(session.Context)
	})

	group.Delete("/:id", func(c *fiber.Ctx) error {
		if err := store.Delete(c.Context(), c.Params("id")); err != nil {
			return WithError(c, err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	})

	group.Post("/:id/messages", func(c *fiber.Ctx) error {
		var body struct {
			Message string `json:"message"`
		}

		if err := c.BodyParser(&body); err != nil {
			return WithError(c, apperr.Wrap(apperr.KindQueryInvalid, "malformed request body", err))
		}

		response, err := orch.Handle(c.Context(), c.Params("id"), body.Message)
		if err != nil {
			return WithError(c, err)
		}

		return c.JSON(fiber.Map{"response": response})
	})

	group.Post("/:id/messages/stream", streamHandler(orch))
}

// streamHandler implements spec.md §4.F's server-sent-events surface via
// Fiber's SetBodyStreamWriter, the idiomatic Fiber SSE pattern. Each
// orchestrator event (tool_start, tool_end, token, final) is written as
// one `event: ...\ndata: ...\n\n` frame and flushed immediately so the
// client observes progress as it happens; client disconnection cancels
// the request context, which the orchestrator observes cooperatively.
func streamHandler(orch *agent.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Message string `json:"message"`
		}

		if err := c.BodyParser(&body); err != nil {
			return WithError(c, apperr.Wrap(apperr.KindQueryInvalid, "malformed request body", err))
		}

		sessionID := c.Params("id")

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			emit := func(event string, data any) {
				payload, err := json.Marshal(data)
				if err != nil {
					return
				}

				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
				w.Flush()
			}

			if _, err := orch.HandleStreaming(c.Context(), sessionID, body.Message, emit); err != nil {
				emit("error", fiber.Map{"error": apperr.KindOf(err).String(), "message": err.Error()})
			}
		})

		return nil
	}
}
