package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
)

// DATE columns are read back as YYYY-MM-DD text.
const habitColumns = "id, user_id, title, description, is_good, to_char(start_date, 'YYYY-MM-DD'), created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var description sql.NullString
	if err := row.Scan(&h.ID, &h.UserID, &h.Title, &description, &h.IsGood, &h.StartDate, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return models.Habit{}, err
	}
	if description.Valid {
		d := description.String
		h.Description = &d
	}
	h.CreatedAt = h.CreatedAt.UTC()
	h.UpdatedAt = h.UpdatedAt.UTC()
	return h, nil
}

func (s *Store) CreateHabit(ctx context.Context, h models.Habit) (models.Habit, error) {
	h = storage.PrepareHabit(h, time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (id, user_id, title, description, is_good, start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.ID, h.UserID, h.Title, h.Description, h.IsGood, h.StartDate, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return models.Habit{}, fmt.Errorf("owner %s: %w", h.UserID, storage.ErrNotFound)
		}
		return models.Habit{}, fmt.Errorf("failed to create habit: %w", err)
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, userID, id string) (models.Habit, error) {
	h, err := scanHabit(s.db.QueryRowContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE id = $1 AND user_id = $2", id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
		}
		return models.Habit{}, err
	}
	return h, nil
}

func (s *Store) GetHabitsForUser(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE user_id = $1 ORDER BY created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *Store) UpdateHabit(ctx context.Context, h models.Habit) (models.Habit, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE habits SET title = $1, description = $2, is_good = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6`,
		h.Title, h.Description, h.IsGood, time.Now().UTC(), h.ID, h.UserID,
	)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to update habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Habit{}, fmt.Errorf("habit %s: %w", h.ID, storage.ErrNotFound)
	}
	return s.GetHabit(ctx, h.UserID, h.ID)
}

func (s *Store) DeleteHabit(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM habits WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) SetCompletion(ctx context.Context, c models.Completion) (models.Completion, error) {
	now := time.Now().UTC()
	var out models.Completion
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO habit_completions (id, habit_id, date, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (habit_id, date) DO UPDATE SET
			completed = EXCLUDED.completed,
			updated_at = EXCLUDED.updated_at
		RETURNING habit_id, to_char(date, 'YYYY-MM-DD'), completed`,
		uuid.NewString(), c.HabitID, c.Date, c.Completed, now,
	).Scan(&out.HabitID, &out.Date, &out.Completed)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return models.Completion{}, fmt.Errorf("habit %s: %w", c.HabitID, storage.ErrNotFound)
		}
		return models.Completion{}, fmt.Errorf("failed to set completion: %w", err)
	}
	return out, nil
}

func (s *Store) GetCompletion(ctx context.Context, habitID, date string) (models.Completion, error) {
	var c models.Completion
	err := s.db.QueryRowContext(ctx, `
		SELECT habit_id, to_char(date, 'YYYY-MM-DD'), completed FROM habit_completions
		WHERE habit_id = $1 AND date = $2`, habitID, date).Scan(&c.HabitID, &c.Date, &c.Completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Completion{}, fmt.Errorf("completion %s@%s: %w", habitID, date, storage.ErrNotFound)
		}
		return models.Completion{}, err
	}
	return c, nil
}

func (s *Store) GetCompletionsForHabit(ctx context.Context, habitID string) ([]models.Completion, error) {
	return s.queryCompletions(ctx, `
		SELECT habit_id, to_char(date, 'YYYY-MM-DD'), completed FROM habit_completions
		WHERE habit_id = $1 ORDER BY date`, habitID)
}

func (s *Store) GetAllCompletionsForUser(ctx context.Context, userID string) ([]models.Completion, error) {
	return s.queryCompletions(ctx, `
		SELECT c.habit_id, to_char(c.date, 'YYYY-MM-DD'), c.completed
		FROM habit_completions c JOIN habits h ON h.id = c.habit_id
		WHERE h.user_id = $1 ORDER BY c.date`, userID)
}

func (s *Store) queryCompletions(ctx context.Context, query string, args ...any) ([]models.Completion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Completion{}
	for rows.Next() {
		var c models.Completion
		if err := rows.Scan(&c.HabitID, &c.Date, &c.Completed); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetUserCompletionsForDate(ctx context.Context, userID, date string) ([]models.DatedCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.habit_id, to_char(c.date, 'YYYY-MM-DD'), c.completed, h.title
		FROM habit_completions c JOIN habits h ON h.id = c.habit_id
		WHERE h.user_id = $1 AND c.date = $2 ORDER BY h.title`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.DatedCompletion{}
	for rows.Next() {
		var dc models.DatedCompletion
		if err := rows.Scan(&dc.HabitID, &dc.Date, &dc.Completed, &dc.HabitTitle); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCompletion(ctx context.Context, habitID, date string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM habit_completions WHERE habit_id = $1 AND date = $2", habitID, date)
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("completion %s@%s: %w", habitID, date, storage.ErrNotFound)
	}
	return nil
}
