package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/mlog"
)

func newTestRemote(t *testing.T) (*RemoteRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	repo := newRemoteRepositoryWithDB(db, RemoteOptions{Source: "sap_bdc"}, mlog.NoopLogger{})

	return repo, mock
}

func TestRemoteRepository_Name(t *testing.T) {
	repo, _ := newTestRemote(t)
	assert.Equal(t, "remote", repo.Name())
}

func TestRemoteRepository_ListProducts(t *testing.T) {
	repo, mock := newTestRemote(t)

	rows := sqlmock.NewRows([]string{"table_name"}).
		AddRow("accounts").
		AddRow("transactions")
	mock.ExpectQuery(`SELECT table_name FROM information_schema.tables`).
		WillReturnRows(rows)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "accounts", products[0].ID)
	assert.Equal(t, "remote", products[0].Backend)
	assert.Equal(t, "transactions", products[1].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteRepository_ListProducts_QueryError(t *testing.T) {
	repo, mock := newTestRemote(t)

	mock.ExpectQuery(`SELECT table_name FROM information_schema.tables`).
		WillReturnError(assert.AnError)

	products, err := repo.ListProducts(context.Background())
	require.Error(t, err)
	assert.Nil(t, products)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteRepository_ListTables(t *testing.T) {
	repo, mock := newTestRemote(t)

	rows := sqlmock.NewRows([]string{"table_name"}).AddRow("widgets")
	mock.ExpectQuery(`SELECT table_name FROM information_schema.tables`).
		WillReturnRows(rows)

	tables, err := repo.ListTables(context.Background(), "public")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "public", tables[0].Schema)
	assert.Equal(t, "widgets", tables[0].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteRepository_DescribeTable(t *testing.T) {
	repo, mock := newTestRemote(t)

	rows := sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable"}).
		AddRow("id", "integer", "NO").
		AddRow("name", "text", "YES")
	mock.ExpectQuery(`SELECT column_name, data_type, is_nullable FROM information_schema.columns`).
		WillReturnRows(rows)

	columns, err := repo.DescribeTable(context.Background(), "public", "widgets")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.False(t, columns[0].Nullable)
	assert.True(t, columns[1].Nullable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteRepository_ExecuteQuery_RejectsWriteStatement(t *testing.T) {
	repo, mock := newTestRemote(t)

	_, err := repo.ExecuteQuery(context.Background(), "DELETE FROM widgets", nil, 10)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbiddenStatement, apperr.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteRepository_ExecuteQuery_ScansRows(t *testing.T) {
	repo, mock := newTestRemote(t)

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "alpha").
		AddRow(int64(2), "beta")
	mock.ExpectQuery(`SELECT id, name FROM widgets`).
		WillReturnRows(rows)

	result, err := repo.ExecuteQuery(context.Background(), "SELECT id, name FROM widgets", nil, 10)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Columns, 2)
	assert.False(t, result.Truncated)

	assert.NoError(t, mock.ExpectationsWereMet())
}
