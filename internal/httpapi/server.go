package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dataexplorer/core/internal/agent"
	"github.com/dataexplorer/core/internal/conversation"
	"github.com/dataexplorer/core/internal/graphcache"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/internal/registry"
)

// ServerOptions collects everything NewServer needs to assemble the
// runtime's full HTTP surface (spec.md §6).
type ServerOptions struct {
	Logger            mlog.Logger
	Registry          *registry.Registry
	ModuleRoot        string
	GraphEngine       *graphcache.Engine
	SchemaSource      graphcache.Source
	ConversationStore conversation.Store
	Orchestrator      *agent.Orchestrator
}

// NewServer assembles a *fiber.App with the middleware chain and route
// groups the runtime exposes: module federation, knowledge-graph cache,
// and conversational agent.
func NewServer(opts ServerOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "dataexplorer-core",
		ErrorHandler: newFiberErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(WithCorrelationID())
	app.Use(WithCORS())
	app.Use(WithLogging(opts.Logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	RegisterModuleRoutes(app, opts.Registry, opts.ModuleRoot)
	RegisterGraphRoutes(app, opts.GraphEngine, opts.SchemaSource)
	RegisterConversationRoutes(app, opts.ConversationStore, opts.Orchestrator)

	return app
}

func newFiberErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return WithError(c, err)
	}
}
