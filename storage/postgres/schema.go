package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/status"
)

// schemaLockKey serializes EnsureSchema across instances sharing a database.
const schemaLockKey int64 = 0x6c6f6361746f72

// EnsureSchema creates the tables if needed and installs categories. All DDL
// runs in one transaction holding an advisory lock, so instances starting
// together apply it one at a time.
func (s *Storage) EnsureSchema(ctx context.Context, categories []models.Category) error {
	const op = "storage.postgres.EnsureSchema"

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS categories (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL UNIQUE
        )`,
		`CREATE TABLE IF NOT EXISTS facilities (
            id BIGSERIAL PRIMARY KEY,
            title TEXT NOT NULL CHECK (title <> ''),
            category BIGINT NOT NULL REFERENCES categories(id),
            description TEXT NOT NULL CHECK (description <> ''),
            house_number TEXT NOT NULL DEFAULT '',
            street_name TEXT NOT NULL DEFAULT '',
            town TEXT NOT NULL DEFAULT '',
            county TEXT NOT NULL DEFAULT '',
            postcode TEXT NOT NULL DEFAULT '',
            lat DOUBLE PRECISION,
            lng DOUBLE PRECISION,
            contributor TEXT NOT NULL DEFAULT '',
            comments TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`ALTER TABLE facilities DROP CONSTRAINT IF EXISTS facilities_comments_check`,
		`ALTER TABLE facilities ADD CONSTRAINT facilities_comments_check CHECK (comments IS NULL OR comments IN (` + statusList() + `))`,
		`CREATE INDEX IF NOT EXISTS facilities_town_idx ON facilities (town)`,
		`CREATE INDEX IF NOT EXISTS facilities_category_idx ON facilities (category)`,
		`CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            user_type INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
			return err
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return seedCategories(ctx, tx, categories)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func seedCategories(ctx context.Context, tx pgx.Tx, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range categories {
		batch.Queue(`INSERT INTO categories (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, c.ID, c.Name)
	}
	// Explicit ids leave the sequence behind.
	batch.Queue(`SELECT setval(pg_get_serial_sequence('categories', 'id'), (SELECT MAX(id) FROM categories))`)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("seed categories: %w", err)
		}
	}
	return br.Close()
}

func statusList() string {
	quoted := make([]string, 0, len(status.All()))
	for _, c := range status.All() {
		quoted = append(quoted, "'"+strings.ReplaceAll(string(c), "'", "''")+"'")
	}
	return strings.Join(quoted, ", ")
}
