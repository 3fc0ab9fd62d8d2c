package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
)

const userColumns = "id, email, name, COALESCE(token_hash, ''), created_at, updated_at"

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u = storage.PrepareUser(u, time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		u.ID, u.Email, u.Name, u.TokenHash, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
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

func (s *Store) getUserBy(ctx context.Context, column, value string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = $1", value).
		Scan(&u.ID, &u.Email, &u.Name, &u.TokenHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user: %w", storage.ErrNotFound)
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = $1, name = $2, token_hash = NULLIF($3, ''), updated_at = $4
		WHERE id = $5`,
		u.Email, u.Name, u.TokenHash, time.Now().UTC(), u.ID,
	)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return fmt.Errorf("user %s: %w", u.Email, storage.ErrConflict)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	return nil
}
