package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
	"github.com/VVKrauss/Hub-3-sub002/internal/observability"
)

const (
	serializationFailureCode = "40001"
	uniqueViolationCode      = "23505"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so read helpers can
// run standalone or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// WithTx runs fn inside a SERIALIZABLE transaction. Serialization failures
// and unique violations are mapped to domain sentinels so callers can retry
// or report conflicts without inspecting pg error codes.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case serializationFailureCode:
				return domain.ErrSerializationFailure
			case uniqueViolationCode:
				return domain.ErrConflict
			}
		}
		return err
	}

	return tx.Commit(ctx)
}
