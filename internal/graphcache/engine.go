package graphcache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// Source builds one graph kind/id pair from its declarative or live
// inputs. Fingerprint is cheap and side-effect-free (a hash over source
// metadata); Build does the full, possibly expensive, graph assembly.
type Source interface {
	Fingerprint(ctx context.Context) (string, error)
	Build(ctx context.Context) (*mmodel.Graph, error)
}

// Engine owns the MISSING/BUILDING/FRESH/REBUILDING state machine of
// spec.md §4.D. There is no explicit state field per key — state is
// implicit in (store contents, singleflight in-flight set) — but the
// transitions below implement exactly the documented machine.
type Engine struct {
	store Store
	group singleflight.Group
	log   mlog.Logger
}

// New creates an Engine persisting through store.
func New(store Store, logger mlog.Logger) *Engine {
	return &Engine{store: store, log: logger}
}

func flightKey(kind mmodel.GraphKind, id string) string {
	return string(kind) + ":" + id
}

// GetOrRebuild implements get_or_rebuild(kind, id): load from the
// persistent store; on a fingerprint match, return the cached graph; on
// a miss, mismatch, or load error, rebuild behind the per-key
// single-flight group so concurrent callers collapse into exactly one
// build (I5). The returned bool reports whether this call triggered a
// rebuild (self-heal), so callers can surface it (e.g. metadata.rebuilt).
func (e *Engine) GetOrRebuild(ctx context.Context, kind mmodel.GraphKind, id string, source Source) (*mmodel.Graph, bool, error) {
	cached, found, err := e.store.Load(ctx, kind, id)
	if err == nil && found {
		current, fpErr := source.Fingerprint(ctx)
		if fpErr == nil && current == cached.SourceFingerprint {
			return cached, false, nil
		}
	}

	graph, rebuildErr := e.rebuild(ctx, kind, id, source)
	if rebuildErr != nil {
		return nil, false, rebuildErr
	}

	return graph, true, nil
}

// ForceRebuild implements force_rebuild(kind, id): an unconditional
// rebuild that replaces the stored row; the old row is not deleted
// first. Readers in flight against the old row keep observing it until
// the new graph is committed, since commit is Save's swap (a single
// INSERT ... ON CONFLICT UPDATE), never a partial update.
func (e *Engine) ForceRebuild(ctx context.Context, kind mmodel.GraphKind, id string, source Source) (*mmodel.Graph, error) {
	return e.rebuild(ctx, kind, id, source)
}

func (e *Engine) rebuild(ctx context.Context, kind mmodel.GraphKind, id string, source Source) (*mmodel.Graph, error) {
	key := flightKey(kind, id)

	v, err, _ := e.group.Do(key, func() (any, error) {
		graph, buildErr := source.Build(ctx)
		if buildErr != nil {
			return nil, apperr.Wrap(apperr.KindCacheCorrupt, "graph build failed for "+key, buildErr)
		}

		graph.Recompute()

		if validateErr := graph.Validate(); validateErr != nil {
			return nil, apperr.Wrap(apperr.KindCacheCorrupt, "built graph failed validation for "+key, validateErr)
		}

		if saveErr := e.store.Save(ctx, kind, id, graph); saveErr != nil {
			return nil, saveErr
		}

		return graph, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*mmodel.Graph), nil
}

// Invalidate deletes the persisted row for (kind, id), returning it to
// MISSING. The next GetOrRebuild call rebuilds it.
func (e *Engine) Invalidate(ctx context.Context, kind mmodel.GraphKind, id string) error {
	return e.store.Delete(ctx, kind, id)
}
