package graphcache

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/pkg/mmodel"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE graph_cache (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		payload BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (kind, id)
	)`)
	require.NoError(t, err)

	return NewSQLiteStore(db)
}

func testGraph(id string) *mmodel.Graph {
	return &mmodel.Graph{
		ID:                id,
		Kind:              mmodel.GraphKindSchema,
		Nodes:             []mmodel.Node{{ID: "n1"}},
		SourceFingerprint: "fp-1",
	}
}

func TestSQLiteStore_LoadMiss(t *testing.T) {
	store := newTestSQLiteStore(t)

	graph, found, err := store.Load(context.Background(), mmodel.GraphKindSchema, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, graph)
}

func TestSQLiteStore_SaveThenLoad(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, mmodel.GraphKindSchema, "g1", testGraph("g1")))

	loaded, found, err := store.Load(ctx, mmodel.GraphKindSchema, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "g1", loaded.ID)
	assert.Equal(t, "fp-1", loaded.SourceFingerprint)
}

func TestSQLiteStore_SaveIsFullReplace(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, mmodel.GraphKindSchema, "g1", testGraph("g1")))

	replacement := testGraph("g1")
	replacement.SourceFingerprint = "fp-2"
	replacement.Nodes = nil
	require.NoError(t, store.Save(ctx, mmodel.GraphKindSchema, "g1", replacement))

	loaded, found, err := store.Load(ctx, mmodel.GraphKindSchema, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "fp-2", loaded.SourceFingerprint)
	assert.Empty(t, loaded.Nodes)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, mmodel.GraphKindSchema, "g1", testGraph("g1")))
	require.NoError(t, store.Delete(ctx, mmodel.GraphKindSchema, "g1"))

	_, found, err := store.Load(ctx, mmodel.GraphKindSchema, "g1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStore_LoadCorruptPayload(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO graph_cache (kind, id, fingerprint, payload, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
	`, string(mmodel.GraphKindSchema), "g1", "fp-1", []byte("not json"))
	require.NoError(t, err)

	_, found, err := store.Load(ctx, mmodel.GraphKindSchema, "g1")
	require.Error(t, err)
	assert.False(t, found)
	assert.Equal(t, apperr.KindCacheCorrupt, apperr.KindOf(err))
}

func newTestCachingStore(t *testing.T) (*CachingStore, *miniredis.Miniredis, *SQLiteStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	inner := newTestSQLiteStore(t)

	return NewCachingStore(inner, rdb, 0), mr, inner
}

func TestCachingStore_LoadPopulatesHotCacheOnMiss(t *testing.T) {
	store, mr, inner := newTestCachingStore(t)
	ctx := context.Background()

	require.NoError(t, inner.Save(ctx, mmodel.GraphKindSchema, "g1", testGraph("g1")))

	loaded, found, err := store.Load(ctx, mmodel.GraphKindSchema, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "g1", loaded.ID)

	assert.True(t, mr.Exists(cacheKey(mmodel.GraphKindSchema, "g1")))
}

func TestCachingStore_LoadServesFromRedisOnHit(t *testing.T) {
	store, _, inner := newTestCachingStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, mmodel.GraphKindSchema, "g1", testGraph("g1")))

	require.NoError(t, inner.Delete(ctx, mmodel.GraphKindSchema, "g1"))

	loaded, found, err := store.Load(ctx, mmodel.GraphKindSchema, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "g1", loaded.ID)
}

func TestCachingStore_DeleteEvictsHotCache(t *testing.T) {
	store, mr, _ := newTestCachingStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, mmodel.GraphKindSchema, "g1", testGraph("g1")))
	require.NoError(t, store.Delete(ctx, mmodel.GraphKindSchema, "g1"))

	assert.False(t, mr.Exists(cacheKey(mmodel.GraphKindSchema, "g1")))

	_, found, err := store.Load(ctx, mmodel.GraphKindSchema, "g1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCachingStore_DegradesToInnerWithoutRedis(t *testing.T) {
	inner := newTestSQLiteStore(t)
	store := NewCachingStore(inner, nil, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, mmodel.GraphKindSchema, "g1", testGraph("g1")))

	loaded, found, err := store.Load(ctx, mmodel.GraphKindSchema, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "g1", loaded.ID)
}
