package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/models"
)

func (s *Storage) UserByUsername(ctx context.Context, username string) (models.User, error) {
	const op = "storage.postgres.UserByUsername"

	var u models.User
	var kind int
	err := s.db.QueryRow(ctx, `
        SELECT id, username, password_hash, user_type, created_at
        FROM users
        WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &kind, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, apperr.NotFound("user %q not found", username))
	}
	if err != nil {
		return models.User{}, classify(op, err)
	}
	u.Type = models.UserType(kind)
	return u, nil
}

// EnsureUser inserts the account unless the username already exists.
func (s *Storage) EnsureUser(ctx context.Context, username, passwordHash string, kind models.UserType) error {
	const op = "storage.postgres.EnsureUser"

	_, err := s.db.Exec(ctx, `
        INSERT INTO users (username, password_hash, user_type)
        VALUES ($1, $2, $3)
        ON CONFLICT (username) DO NOTHING`, username, passwordHash, int(kind))
	if err != nil {
		return classify(op, err)
	}
	return nil
}
