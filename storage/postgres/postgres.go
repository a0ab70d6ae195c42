// Package postgres implements the storage contracts on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/storage"
)

var (
	_ storage.FacilityStore = (*Storage)(nil)
	_ storage.UserStore     = (*Storage)(nil)
)

// Storage is the pgx-backed store.
type Storage struct {
	db *pgxpool.Pool
}

// New opens a pool for dsn and verifies connectivity.
func New(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.postgres.New"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{db: pool}, nil
}

// Close releases the pool.
func (s *Storage) Close() {
	s.db.Close()
}

// Ping reports whether the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// classify maps driver errors onto the apperr taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.NotFound("record not found"))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, apperr.Validation("unknown category"))
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%s: %w", op, apperr.Validation("value rejected by constraint %s", pgErr.ConstraintName))
		case pgerrcode.NotNullViolation:
			return fmt.Errorf("%s: %w", op, apperr.Validation("%s is required", pgErr.ColumnName))
		}
	}
	return apperr.Store(op, err)
}
