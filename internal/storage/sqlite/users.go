package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
)

const userColumns = "id, email, name, token_hash, created_at, updated_at"

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u = storage.PrepareUser(u, time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, token_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, nullString(u.TokenHash),
		u.CreatedAt.Format(time.RFC3339), u.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("user %s: %w", u.Email, storage.ErrConflict)
		}
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.getUserBy(ctx, "id", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUserBy(ctx, "email", email)
}

func (s *Store) GetUserByTokenHash(ctx context.Context, hash string) (models.User, error) {
	return s.getUserBy(ctx, "token_hash", hash)
}

// getUserBy looks a user up by one of the fixed unique columns above.
func (s *Store) getUserBy(ctx context.Context, column, value string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)

	var u models.User
	var tokenHash sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &tokenHash, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user: %w", storage.ErrNotFound)
		}
		return models.User{}, err
	}
	u.TokenHash = tokenHash.String

	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return models.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return models.User{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, token_hash = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.Name, nullString(u.TokenHash), time.Now().UTC().Format(time.RFC3339), u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Email, storage.ErrConflict)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
