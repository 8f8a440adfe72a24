package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dataexplorer/core/internal/registry"
)

// RegisterModuleRoutes mounts the frontend-registry surface of spec.md
// §6 under app, backed by reg.
func RegisterModuleRoutes(app fiber.Router, reg *registry.Registry, moduleRoot string) {
	const base = "/api/modules/frontend-registry"

	app.Get(base, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"modules": reg.Snapshot()})
	})

	group := app.Group(base)

	group.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "modules_loaded": reg.EnabledCount()})
	})

	group.Post("/refresh", func(c *fiber.Ctx) error {
		if err := reg.Load(moduleRoot); err != nil {
			return WithError(c, err)
		}

		return c.JSON(fiber.Map{"modules": reg.Snapshot()})
	})

	group.Get("/:id", func(c *fiber.Ctx) error {
		desc, err := reg.Get(c.Params("id"))
		if err != nil {
			return WithError(c, err)
		}

		return c.JSON(desc.ToFrontend())
	})
}
