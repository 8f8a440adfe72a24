package repository

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/sony/gobreaker"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// RemoteRepository is the remote-columnar-store implementation of
// Repository, backed by a Postgres-compatible driver (pgx/v5's
// database/sql stdlib adapter) reached over the network. Every call goes
// through the capped-backoff + circuit-breaker wrapper of spec.md §4.A.
type RemoteRepository struct {
	db      *sql.DB
	logger  mlog.Logger
	limits  Limits
	adapter remoteTableAdapter
	breaker *gobreaker.CircuitBreaker
}

// RemoteOptions configures a RemoteRepository.
type RemoteOptions struct {
	DSN    string
	Source string // the product-name prefix baked into the physical table name, e.g. "sap_bdc"
}

// NewRemoteRepository opens a pooled connection to dsn. Grounded on the
// reference platform's common/mpostgres.PostgresConnection.Connect
// primary-connection setup.
func NewRemoteRepository(opts RemoteOptions, logger mlog.Logger) (*RemoteRepository, error) {
	db, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to open remote backend connection", err)
	}

	return newRemoteRepositoryWithDB(db, opts, logger), nil
}

// newRemoteRepositoryWithDB builds a RemoteRepository around an
// already-opened *sql.DB, so tests can inject a sqlmock connection
// instead of dialing a real Postgres-compatible backend.
func newRemoteRepositoryWithDB(db *sql.DB, opts RemoteOptions, logger mlog.Logger) *RemoteRepository {
	source := opts.Source
	if source == "" {
		source = "sap_bdc"
	}

	return &RemoteRepository{
		db:      db,
		logger:  logger,
		limits:  DefaultLimits,
		adapter: remoteTableAdapter{source: source},
		breaker: newRemoteBreaker("repository.remote", isTransientNetworkErr),
	}
}

func (r *RemoteRepository) Name() string { return "remote" }

func (r *RemoteRepository) PhysicalTableName(product string) string {
	return r.adapter.physicalTable(product)
}

func isTransientNetworkErr(err error) bool {
	if err == sql.ErrConnDone {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}

func (r *RemoteRepository) ListProducts(ctx context.Context) ([]mmodel.ProductDescriptor, error) {
	q, args, err := sqrl.Select("table_name").
		From("information_schema.tables").
		Where(sqrl.Eq{"table_schema": "public"}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build ListProducts query", err)
	}

	var out []mmodel.ProductDescriptor

	err = withRetry(ctx, r.breaker, isTransientNetworkErr, func(ctx context.Context) error {
		rows, qErr := r.db.QueryContext(ctx, q, args...)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		out = nil

		for rows.Next() {
			var name string
			if scanErr := rows.Scan(&name); scanErr != nil {
				return scanErr
			}

			out = append(out, mmodel.ProductDescriptor{ID: name, Name: name, Backend: r.Name()})
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *RemoteRepository) ListTables(ctx context.Context, schema string) ([]mmodel.TableDescriptor, error) {
	q, args, err := sqrl.Select("table_name").
		From("information_schema.tables").
		Where(sqrl.Eq{"table_schema": schema}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build ListTables query", err)
	}

	var out []mmodel.TableDescriptor

	err = withRetry(ctx, r.breaker, isTransientNetworkErr, func(ctx context.Context) error {
		rows, qErr := r.db.QueryContext(ctx, q, args...)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		out = nil

		for rows.Next() {
			var name string
			if scanErr := rows.Scan(&name); scanErr != nil {
				return scanErr
			}

			out = append(out, mmodel.TableDescriptor{Schema: schema, Name: name})
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *RemoteRepository) DescribeTable(ctx context.Context, schema, table string) ([]mmodel.ColumnDescriptor, error) {
	q, args, err := sqrl.Select("column_name", "data_type", "is_nullable").
		From("information_schema.columns").
		Where(sqrl.Eq{"table_schema": schema, "table_name": table}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build DescribeTable query", err)
	}

	var out []mmodel.ColumnDescriptor

	err = withRetry(ctx, r.breaker, isTransientNetworkErr, func(ctx context.Context) error {
		rows, qErr := r.db.QueryContext(ctx, q, args...)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		out = nil

		for rows.Next() {
			var (
				name     string
				dataType string
				nullable string
			)

			if scanErr := rows.Scan(&name, &dataType, &nullable); scanErr != nil {
				return scanErr
			}

			out = append(out, mmodel.ColumnDescriptor{
				Name:     name,
				Type:     dataType,
				Nullable: nullable == "YES",
			})
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *RemoteRepository) ExecuteQuery(ctx context.Context, query string, params []any, limit int) (*mmodel.QueryResult, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	effective, truncatedByCeiling := clampLimit(limit, r.limits)

	start := time.Now()

	var result *mmodel.QueryResult

	err := withRetry(ctx, r.breaker, isTransientNetworkErr, func(ctx context.Context) error {
		rows, qErr := r.db.QueryContext(ctx, query, params...)
		if qErr != nil {
			return apperr.Wrap(apperr.KindQueryInvalid, "remote backend rejected query", qErr).WithEvidence(qErr.Error())
		}
		defer rows.Close()

		scanned, scanErr := scanRows(rows, effective, truncatedByCeiling)
		if scanErr != nil {
			return scanErr
		}

		result = scanned

		return nil
	})
	if err != nil {
		return nil, err
	}

	result.ElapsedMS = time.Since(start).Milliseconds()

	return result, nil
}
