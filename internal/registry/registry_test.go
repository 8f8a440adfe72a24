package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/core/internal/container"
	"github.com/dataexplorer/core/internal/mlog"
)

func writeDescriptor(t *testing.T, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoad_IndexesValidDescriptors(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "dashboards.json", `{
		"id": "dashboards",
		"name": "Dashboards",
		"version": "1.0.0",
		"category": "feature",
		"routes": [{"path": "/dashboards/home", "display_name": "Home"}]
	}`)

	r := New(mlog.NoopLogger{})
	require.NoError(t, r.Load(dir))

	assert.Equal(t, 1, r.Count())

	desc, err := r.Get("dashboards")
	require.NoError(t, err)
	assert.Equal(t, "Dashboards", desc.Name)
}

func TestLoad_DuplicateIDFailsWholeProcess(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "a.json", `{"id":"dup_mod","name":"A","version":"1.0.0","category":"feature"}`)
	writeDescriptor(t, dir, "b.json", `{"id":"dup_mod","name":"B","version":"1.0.0","category":"feature"}`)

	r := New(mlog.NoopLogger{})

	err := r.Load(dir)
	require.Error(t, err)
}

func TestLoad_RejectsRoutePrefixMismatch(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "kg.json", `{
		"id": "knowledge_graph",
		"name": "KG",
		"version": "1.0.0",
		"category": "feature",
		"routes": [{"path": "/wrong-prefix/home", "display_name": "Home"}]
	}`)

	r := New(mlog.NoopLogger{})

	err := r.Load(dir)
	require.Error(t, err)
}

func TestLoad_RejectsInvalidCategory(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "x.json", `{"id":"bad_cat","name":"X","version":"1.0.0","category":"nonsense"}`)

	r := New(mlog.NoopLogger{})

	err := r.Load(dir)
	require.Error(t, err)
}

func TestSnapshot_HidesDisabledModulesAndPrivateFields(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "a.json", `{"id":"enabled_mod","name":"A","version":"1.0.0","category":"feature","enabled":true}`)
	writeDescriptor(t, dir, "b.json", `{"id":"disabled_mod","name":"B","version":"1.0.0","category":"feature","enabled":false}`)

	r := New(mlog.NoopLogger{})
	require.NoError(t, r.Load(dir))

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "enabled_mod", snap[0].ID)
}

func TestResolveCapabilities_MissingRequiredAbortsWithPreciseError(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "a.json", `{
		"id": "needs_repo",
		"name": "A",
		"version": "1.0.0",
		"category": "feature",
		"requires": ["repository.primary"]
	}`)

	r := New(mlog.NoopLogger{})
	require.NoError(t, r.Load(dir))

	c := container.New()
	c.Seal()

	_, err := r.ResolveCapabilities(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs_repo")
	assert.Contains(t, err.Error(), "repository.primary")
}

func TestResolveCapabilities_OptionalMissingRecordsNoop(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "a.json", `{
		"id": "optional_consumer",
		"name": "A",
		"version": "1.0.0",
		"category": "feature",
		"optional": ["graph.data"]
	}`)

	r := New(mlog.NoopLogger{})
	require.NoError(t, r.Load(dir))

	c := container.New()
	c.Seal()

	noops, err := r.ResolveCapabilities(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"graph.data"}, noops["optional_consumer"])
}

func TestEagerModules_OnlyListsEagerEnabled(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "a.json", `{"id":"eager_mod","name":"A","version":"1.0.0","category":"feature","eager_init":true}`)
	writeDescriptor(t, dir, "b.json", `{"id":"lazy_mod","name":"B","version":"1.0.0","category":"feature","eager_init":false}`)

	r := New(mlog.NoopLogger{})
	require.NoError(t, r.Load(dir))

	assert.Equal(t, []string{"eager_mod"}, r.EagerModules())
}

func TestCacheKey_ChangesWhenDescriptorsChange(t *testing.T) {
	dir := t.TempDir()

	writeDescriptor(t, dir, "a.json", `{"id":"mod_one","name":"A","version":"1.0.0","category":"feature"}`)

	r := New(mlog.NoopLogger{})
	require.NoError(t, r.Load(dir))

	first := r.CacheKey()

	writeDescriptor(t, dir, "b.json", `{"id":"mod_two","name":"B","version":"1.0.0","category":"feature"}`)

	require.NoError(t, r.Load(dir))

	assert.NotEqual(t, first, r.CacheKey())
}
