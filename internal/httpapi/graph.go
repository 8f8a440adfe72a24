package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dataexplorer/core/internal/graphcache"
	"github.com/dataexplorer/core/pkg/mmodel"
)

const defaultSchemaGraphID = "default"

// RegisterGraphRoutes mounts the knowledge-graph surface of spec.md §6.
// engine is the Graph Cache Engine; source builds the single schema
// graph this deployment serves.
func RegisterGraphRoutes(app fiber.Router, engine *graphcache.Engine, source graphcache.Source) {
	group := app.Group("/api/knowledge-graph-v2")

	group.Get("/schema", func(c *fiber.Ctx) error {
		graph, rebuilt, err := engine.GetOrRebuild(c.Context(), mmodel.GraphKindSchema, defaultSchemaGraphID, source)
		if err != nil {
			return WithError(c, err)
		}

		return c.JSON(fiber.Map{
			"graph": graph,
			"metadata": fiber.Map{
				"fingerprint": graph.SourceFingerprint,
				"rebuilt":     rebuilt,
			},
		})
	})

	group.Post("/schema/rebuild", func(c *fiber.Ctx) error {
		graph, err := engine.ForceRebuild(c.Context(), mmodel.GraphKindSchema, defaultSchemaGraphID, source)
		if err != nil {
			return WithError(c, err)
		}

		return c.JSON(fiber.Map{"graph": graph, "rebuilt": true})
	})

	group.Get("/status", func(c *fiber.Ctx) error {
		fingerprint, err := source.Fingerprint(c.Context())
		if err != nil {
			return WithError(c, err)
		}

		graph, _, err := engine.GetOrRebuild(c.Context(), mmodel.GraphKindSchema, defaultSchemaGraphID, source)
		cachePresent := err == nil

		return c.JSON(fiber.Map{
			"cache_present": cachePresent,
			"fingerprint":   fingerprint,
			"built_at":      graphBuiltAt(graph),
		})
	})

	group.Delete("/cache", func(c *fiber.Ctx) error {
		if err := engine.Invalidate(c.Context(), mmodel.GraphKindSchema, defaultSchemaGraphID); err != nil {
			return WithError(c, err)
		}

		return c.JSON(fiber.Map{"deleted": true})
	})

	group.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
}

func graphBuiltAt(graph *mmodel.Graph) any {
	if graph == nil {
		return nil
	}

	return graph.Statistics
}
