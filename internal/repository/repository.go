// Package repository implements the Repository Layer of spec.md §4.A: a
// single interface fronting two backends (an embedded SQLite store and a
// remote Postgres-backed columnar store), reached through the DI
// Container under capability keys "repository.primary" and
// "repository.remote". Grounded on the reference platform's per-backend
// *PostgreSQLRepository family (adapters/database/postgres/*.go) and its
// table-name-per-repository convention.
package repository

import (
	"context"

	"github.com/dataexplorer/core/pkg/mmodel"
)

// Repository is the uniform CRUD/query surface every backend
// implementation provides. Its capability names ("repository.primary",
// "repository.remote") carry no leading underscore; modules reach a
// backend only through this interface, never through a concrete type.
type Repository interface {
	ListProducts(ctx context.Context) ([]mmodel.ProductDescriptor, error)
	ListTables(ctx context.Context, schema string) ([]mmodel.TableDescriptor, error)
	DescribeTable(ctx context.Context, schema, table string) ([]mmodel.ColumnDescriptor, error)
	ExecuteQuery(ctx context.Context, sql string, params []any, limit int) (*mmodel.QueryResult, error)

	// PhysicalTableName resolves a logical product name to the concrete
	// table name this backend stores it under. The table-name adapter
	// backing this method is never exposed as its own capability —
	// callers only ever see this method, which is what lets the
	// Conversational Agent Core speak one logical name across backends
	// (spec.md §4.A, §4.F).
	PhysicalTableName(product string) string

	// Name identifies the backend for diagnostics and for the multi-pool
	// routing the HTTP boundary may perform.
	Name() string
}

// Limits bounds ExecuteQuery's row cap, per spec.md §4.A.
type Limits struct {
	Default int
	Ceiling int
}

// DefaultLimits matches spec.md's stated defaults (1000 rows, 50000
// ceiling).
var DefaultLimits = Limits{Default: 1000, Ceiling: 50000}

// clampLimit applies B1: limit=0 returns zero rows untruncated; limit
// above the ceiling is capped and marked truncated.
func clampLimit(limit int, limits Limits) (effective int, truncatedByCeiling bool) {
	if limit == 0 {
		return 0, false
	}

	if limit < 0 {
		limit = limits.Default
	}

	if limit > limits.Ceiling {
		return limits.Ceiling, true
	}

	return limit, false
}
