// Package graphcache implements the Knowledge-Graph Cache Engine of
// spec.md §4.D: build ⇄ persist ⇄ serve schema/data graphs, self-healing
// on cache miss or corruption. Grounded on the teacher's cache-hub-in-
// front-of-a-repository pattern (common/mredis.RedisConnection fronting
// the Postgres repositories) generalized to a graph-specific payload.
package graphcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// Store is the persistence contract for one graph row, keyed by
// (kind, id). Implementations must make Save a full replace (commit is a
// swap, never a partial update), per spec.md §4.D's force_rebuild note.
type Store interface {
	Load(ctx context.Context, kind mmodel.GraphKind, id string) (*mmodel.Graph, bool, error)
	Save(ctx context.Context, kind mmodel.GraphKind, id string, graph *mmodel.Graph) error
	Delete(ctx context.Context, kind mmodel.GraphKind, id string) error
}

// SQLiteStore persists graphs in the embedded repository's
// graph_cache(kind, id, fingerprint, payload, updated_at) table (spec.md
// §6's persisted-state layout).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db, which must already have the graph_cache table
// (EmbeddedRepository creates it on open).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context, kind mmodel.GraphKind, id string) (*mmodel.Graph, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM graph_cache WHERE kind = ? AND id = ?`, string(kind), id)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}

		return nil, false, apperr.Wrap(apperr.KindCacheCorrupt, "failed to load graph_cache row", err)
	}

	var graph mmodel.Graph
	if err := json.Unmarshal(payload, &graph); err != nil {
		return nil, false, apperr.Wrap(apperr.KindCacheCorrupt, "graph_cache payload is not valid JSON", err)
	}

	return &graph, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, kind mmodel.GraphKind, id string, graph *mmodel.Graph) error {
	payload, err := json.Marshal(graph)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to serialize graph", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graph_cache (kind, id, fingerprint, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			payload     = excluded.payload,
			updated_at  = excluded.updated_at
	`, string(kind), id, graph.SourceFingerprint, payload, time.Now().UTC())
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save graph_cache row", err)
	}

	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, kind mmodel.GraphKind, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM graph_cache WHERE kind = ? AND id = ?`, string(kind), id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete graph_cache row", err)
	}

	return nil
}

// CachingStore fronts an inner Store with a redis/go-redis/v9 read-through
// layer for hot lookups. A redis hit still carries the full graph
// payload, so the caller re-verifies the fingerprint exactly as it would
// against the inner store (spec.md §4.D: "cache hit still re-verifies
// fingerprint against current inputs").
type CachingStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachingStore wraps inner with a redis hot layer. rdb may be nil, in
// which case CachingStore degrades to calling inner directly — the
// engine works with or without redis configured.
func NewCachingStore(inner Store, rdb *redis.Client, ttl time.Duration) *CachingStore {
	return &CachingStore{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(kind mmodel.GraphKind, id string) string {
	return "graphcache:" + string(kind) + ":" + id
}

func (c *CachingStore) Load(ctx context.Context, kind mmodel.GraphKind, id string) (*mmodel.Graph, bool, error) {
	if c.rdb == nil {
		return c.inner.Load(ctx, kind, id)
	}

	payload, err := c.rdb.Get(ctx, cacheKey(kind, id)).Bytes()
	if err == nil {
		var graph mmodel.Graph
		if jsonErr := json.Unmarshal(payload, &graph); jsonErr == nil {
			return &graph, true, nil
		}
		// A corrupt redis entry falls through to the inner store rather
		// than failing the whole lookup.
	}

	graph, found, err := c.inner.Load(ctx, kind, id)
	if err != nil || !found {
		return graph, found, err
	}

	c.populateHotCache(ctx, kind, id, graph)

	return graph, true, nil
}

func (c *CachingStore) populateHotCache(ctx context.Context, kind mmodel.GraphKind, id string, graph *mmodel.Graph) {
	if c.rdb == nil {
		return
	}

	payload, err := json.Marshal(graph)
	if err != nil {
		return
	}

	c.rdb.Set(ctx, cacheKey(kind, id), payload, c.ttl)
}

func (c *CachingStore) Save(ctx context.Context, kind mmodel.GraphKind, id string, graph *mmodel.Graph) error {
	if err := c.inner.Save(ctx, kind, id, graph); err != nil {
		return err
	}

	c.populateHotCache(ctx, kind, id, graph)

	return nil
}

func (c *CachingStore) Delete(ctx context.Context, kind mmodel.GraphKind, id string) error {
	if err := c.inner.Delete(ctx, kind, id); err != nil {
		return err
	}

	if c.rdb != nil {
		c.rdb.Del(ctx, cacheKey(kind, id))
	}

	return nil
}
