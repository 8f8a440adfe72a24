package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/mlog"
)

func newTestEmbedded(t *testing.T) *EmbeddedRepository {
	t.Helper()

	repo, err := NewEmbeddedRepository(":memory:", mlog.NoopLogger{})
	require.NoError(t, err)

	return repo
}

func TestEmbeddedRepository_Name(t *testing.T) {
	repo := newTestEmbedded(t)
	assert.Equal(t, "embedded", repo.Name())
}

func TestEmbeddedRepository_ListProductsExcludesSqliteInternals(t *testing.T) {
	repo := newTestEmbedded(t)
	ctx := context.Background()

	_, err := repo.DB().ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	products, err := repo.ListProducts(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}

	assert.Contains(t, names, "widgets")
	assert.Contains(t, names, "graph_cache")

	for _, n := range names {
		assert.NotContains(t, n, "sqlite_")
	}
}

func TestEmbeddedRepository_DescribeTableRejectsUnsafeIdentifier(t *testing.T) {
	repo := newTestEmbedded(t)

	_, err := repo.DescribeTable(context.Background(), "", "widgets; DROP TABLE widgets")
	require.Error(t, err)
	assert.Equal(t, apperr.KindQueryInvalid, apperr.KindOf(err))
}

func TestEmbeddedRepository_DescribeTableReturnsColumns(t *testing.T) {
	repo := newTestEmbedded(t)
	ctx := context.Background()

	_, err := repo.DB().ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)

	cols, err := repo.DescribeTable(ctx, "", "widgets")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "name", cols[1].Name)
	assert.False(t, cols[1].Nullable)
}

func TestEmbeddedRepository_ExecuteQueryRejectsWriteStatement(t *testing.T) {
	repo := newTestEmbedded(t)

	_, err := repo.ExecuteQuery(context.Background(), "DELETE FROM graph_cache", nil, 10)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbiddenStatement, apperr.KindOf(err))
}

func TestEmbeddedRepository_ExecuteQueryReturnsRowsAndRespectsLimit(t *testing.T) {
	repo := newTestEmbedded(t)
	ctx := context.Background()

	_, err := repo.DB().ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := repo.DB().ExecContext(ctx, "INSERT INTO widgets (name) VALUES (?)", "w")
		require.NoError(t, err)
	}

	result, err := repo.ExecuteQuery(ctx, "SELECT * FROM widgets", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestEmbeddedRepository_ExecuteQueryZeroLimitReturnsNoRows(t *testing.T) {
	repo := newTestEmbedded(t)
	ctx := context.Background()

	_, err := repo.DB().ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	result, err := repo.ExecuteQuery(ctx, "SELECT * FROM widgets", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
	assert.False(t, result.Truncated)
}
