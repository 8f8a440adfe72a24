package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/core/internal/graphcache"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/internal/repository"
	"github.com/dataexplorer/core/pkg/mmodel"
)

func newTestGraphApp(t *testing.T) (*fiber.App, *graphcache.Engine, graphcache.Source) {
	t.Helper()

	repo, err := repository.NewEmbeddedRepository(":memory:", mlog.NoopLogger{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = repo.DB().ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	doc := graphcache.SchemaDocument{Schema: "public", Tables: []string{"widgets"}}
	source := graphcache.NewSchemaSource(repo, doc)

	store := graphcache.NewSQLiteStore(repo.DB())
	engine := graphcache.New(store, mlog.NoopLogger{})

	app := fiber.New()
	RegisterGraphRoutes(app, engine, source)

	return app, engine, source
}

func doGet(t *testing.T, app *fiber.App, path string) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestGetSchema_FirstCallRebuilds(t *testing.T) {
	app, _, _ := newTestGraphApp(t)

	body := doGet(t, app, "/api/knowledge-graph-v2/schema")

	metadata := body["metadata"].(map[string]any)
	assert.Equal(t, true, metadata["rebuilt"])
	assert.NotEmpty(t, metadata["fingerprint"])
}

func TestGetSchema_CacheHitDoesNotRebuild(t *testing.T) {
	app, _, _ := newTestGraphApp(t)

	doGet(t, app, "/api/knowledge-graph-v2/schema")
	body := doGet(t, app, "/api/knowledge-graph-v2/schema")

	metadata := body["metadata"].(map[string]any)
	assert.Equal(t, false, metadata["rebuilt"])
}

func TestGetSchema_SelfHealsAfterCacheDeletion(t *testing.T) {
	app, engine, _ := newTestGraphApp(t)

	doGet(t, app, "/api/knowledge-graph-v2/schema")

	require.NoError(t, engine.Invalidate(context.Background(), mmodel.GraphKindSchema, defaultSchemaGraphID))

	body := doGet(t, app, "/api/knowledge-graph-v2/schema")

	metadata := body["metadata"].(map[string]any)
	assert.Equal(t, true, metadata["rebuilt"])
}
