package graphcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/pkg/mmodel"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]*mmodel.Graph
}

func newMemStore() *memStore { return &memStore{rows: make(map[string]*mmodel.Graph)} }

func (m *memStore) key(kind mmodel.GraphKind, id string) string { return string(kind) + ":" + id }

func (m *memStore) Load(_ context.Context, kind mmodel.GraphKind, id string) (*mmodel.Graph, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.rows[m.key(kind, id)]

	return g, ok, nil
}

func (m *memStore) Save(_ context.Context, kind mmodel.GraphKind, id string, graph *mmodel.Graph) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[m.key(kind, id)] = graph

	return nil
}

func (m *memStore) Delete(_ context.Context, kind mmodel.GraphKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rows, m.key(kind, id))

	return nil
}

type countingSource struct {
	builds int64
	fp     string
}

func (s *countingSource) Fingerprint(context.Context) (string, error) { return s.fp, nil }

func (s *countingSource) Build(context.Context) (*mmodel.Graph, error) {
	atomic.AddInt64(&s.builds, 1)

	return &mmodel.Graph{
		ID:                "g1",
		Kind:              mmodel.GraphKindSchema,
		Nodes:             []mmodel.Node{{ID: "n1", Type: mmodel.NodeTypeTable}},
		SourceFingerprint: s.fp,
	}, nil
}

func TestEngine_GetOrRebuild_CollapsesConcurrentMisses(t *testing.T) {
	engine := New(newMemStore(), mlog.NoopLogger{})
	source := &countingSource{fp: "fp-1"}

	var wg sync.WaitGroup

	results := make([]*mmodel.Graph, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			g, _, err := engine.GetOrRebuild(context.Background(), mmodel.GraphKindSchema, "default", source)
			require.NoError(t, err)

			results[i] = g
		}(i)
	}

	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&source.builds))

	for _, g := range results {
		assert.Equal(t, "fp-1", g.SourceFingerprint)
	}
}

func TestEngine_GetOrRebuild_CacheHitSkipsRebuild(t *testing.T) {
	engine := New(newMemStore(), mlog.NoopLogger{})
	source := &countingSource{fp: "fp-1"}

	ctx := context.Background()

	_, rebuilt, err := engine.GetOrRebuild(ctx, mmodel.GraphKindSchema, "default", source)
	require.NoError(t, err)
	assert.True(t, rebuilt)

	_, rebuilt, err = engine.GetOrRebuild(ctx, mmodel.GraphKindSchema, "default", source)
	require.NoError(t, err)
	assert.False(t, rebuilt)

	assert.EqualValues(t, 1, atomic.LoadInt64(&source.builds))
}

func TestEngine_GetOrRebuild_FingerprintMismatchTriggersRebuild(t *testing.T) {
	engine := New(newMemStore(), mlog.NoopLogger{})
	source := &countingSource{fp: "fp-1"}

	ctx := context.Background()

	_, _, err := engine.GetOrRebuild(ctx, mmodel.GraphKindSchema, "default", source)
	require.NoError(t, err)

	source.fp = "fp-2"

	g, rebuilt, err := engine.GetOrRebuild(ctx, mmodel.GraphKindSchema, "default", source)
	require.NoError(t, err)
	assert.Equal(t, "fp-2", g.SourceFingerprint)
	assert.True(t, rebuilt)
	assert.EqualValues(t, 2, atomic.LoadInt64(&source.builds))
}

func TestEngine_ForceRebuild_ExactlyOneSwapUnderConcurrency(t *testing.T) {
	engine := New(newMemStore(), mlog.NoopLogger{})
	source := &countingSource{fp: "fp-1"}

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := engine.ForceRebuild(context.Background(), mmodel.GraphKindSchema, "default", source)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&source.builds))
}

func TestEngine_Invalidate_ReturnsToMissing(t *testing.T) {
	store := newMemStore()
	engine := New(store, mlog.NoopLogger{})
	source := &countingSource{fp: "fp-1"}

	ctx := context.Background()

	_, _, err := engine.GetOrRebuild(ctx, mmodel.GraphKindSchema, "default", source)
	require.NoError(t, err)

	require.NoError(t, engine.Invalidate(ctx, mmodel.GraphKindSchema, "default"))

	_, found, err := store.Load(ctx, mmodel.GraphKindSchema, "default")
	require.NoError(t, err)
	assert.False(t, found)

	_, rebuilt, err := engine.GetOrRebuild(ctx, mmodel.GraphKindSchema, "default", source)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.EqualValues(t, 2, atomic.LoadInt64(&source.builds))
}
