package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// EmbeddedRepository is the embedded-SQL-store implementation of
// Repository, backed by a pure-Go SQLite driver. It is the simplest
// backend: in-process, file-based, identity table-name adapter.
type EmbeddedRepository struct {
	db     *sql.DB
	logger mlog.Logger
	limits Limits
}

// NewEmbeddedRepository opens (creating if necessary) the SQLite file at
// path and returns a ready Repository. Grounded on the reference
// platform's connection-hub-with-singleton-Connect pattern
// (common/mpostgres.PostgresConnection), simplified for a single
// embedded file with no replica.
func NewEmbeddedRepository(path string, logger mlog.Logger) (*EmbeddedRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to open embedded store at "+path, err)
	}

	if err := db.Ping(); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to ping embedded store at "+path, err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS graph_cache (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		payload BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (kind, id)
	)`); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to ensure graph_cache table", err)
	}

	return &EmbeddedRepository{db: db, logger: logger, limits: DefaultLimits}, nil
}

func (r *EmbeddedRepository) Name() string { return "embedded" }

// PhysicalTableName is the identity adapter: the embedded backend stores
// a product under its own name.
func (r *EmbeddedRepository) PhysicalTableName(product string) string {
	return embeddedTableAdapter{}.physicalTable(product)
}

// DB exposes the underlying *sql.DB so the Graph Cache Engine and
// Conversation Store's persistent variant can reuse this connection, as
// the spec explicitly allows ("a persistent implementation sharing the
// Repository's backend is an allowed variant").
func (r *EmbeddedRepository) DB() *sql.DB { return r.db }

func (r *EmbeddedRepository) ListProducts(ctx context.Context) ([]mmodel.ProductDescriptor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT tbl_name FROM sqlite_master WHERE type='table' AND tbl_name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindQueryInvalid, "failed to list products", err).WithEvidence(err.Error())
	}
	defer rows.Close()

	var out []mmodel.ProductDescriptor

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan product row", err)
		}

		out = append(out, mmodel.ProductDescriptor{ID: name, Name: name, Backend: r.Name()})
	}

	return out, rows.Err()
}

func (r *EmbeddedRepository) ListTables(ctx context.Context, schema string) ([]mmodel.TableDescriptor, error) {
	products, err := r.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]mmodel.TableDescriptor, 0, len(products))
	for _, p := range products {
		out = append(out, mmodel.TableDescriptor{Schema: schema, Name: p.Name})
	}

	return out, nil
}

func (r *EmbeddedRepository) DescribeTable(ctx context.Context, schema, table string) ([]mmodel.ColumnDescriptor, error) {
	if !isSafeIdentifier(table) {
		return nil, apperr.New(apperr.KindQueryInvalid, "invalid table identifier "+table)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindQueryInvalid, "failed to describe table "+table, err).WithEvidence(err.Error())
	}
	defer rows.Close()

	var out []mmodel.ColumnDescriptor

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)

		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan column info", err)
		}

		out = append(out, mmodel.ColumnDescriptor{
			Name:     name,
			Type:     ctype,
			Nullable: notNull == 0,
		})
	}

	return out, rows.Err()
}

func (r *EmbeddedRepository) ExecuteQuery(ctx context.Context, query string, params []any, limit int) (*mmodel.QueryResult, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	effective, truncated := clampLimit(limit, r.limits)

	start := time.Now()

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindQueryInvalid, "embedded backend rejected query", err).WithEvidence(err.Error())
	}
	defer rows.Close()

	result, err := scanRows(rows, effective, truncated)
	if err != nil {
		return nil, err
	}

	result.ElapsedMS = time.Since(start).Milliseconds()

	return result, nil
}

func scanRows(rows *sql.Rows, limit int, truncatedByCeiling bool) (*mmodel.QueryResult, error) {
	colNames, err := rows.Columns()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read result columns", err)
	}

	colTypes, _ := rows.ColumnTypes()

	columns := make([]mmodel.Column, len(colNames))
	for i, name := range colNames {
		typeName := "unknown"
		if colTypes != nil && i < len(colTypes) {
			typeName = colTypes[i].DatabaseTypeName()
		}

		columns[i] = mmodel.Column{Name: name, Type: typeName}
	}

	result := &mmodel.QueryResult{Columns: columns, Truncated: truncatedByCeiling}

	if limit == 0 {
		return result, nil
	}

	values := make([]any, len(colNames))
	scanDest := make([]any, len(colNames))
	for i := range values {
		scanDest[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}

		if err := rows.Scan(scanDest...); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan result row", err)
		}

		row := make(map[string]any, len(colNames))
		for i, name := range colNames {
			row[name] = values[i]
		}

		result.Rows = append(result.Rows, row)
	}

	result.RowCount = len(result.Rows)

	return result, rows.Err()
}
