package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/models"
)

// HabitsWithCompletions loads a user's habits and completions concurrently
// and pairs them up. Habits without completions get an empty slice.
func HabitsWithCompletions(ctx context.Context, p Provider, userID string) ([]models.HabitWithCompletions, error) {
	var (
		habits      []models.Habit
		completions []models.Completion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		habits, err = p.GetHabitsForUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		completions, err = p.GetAllCompletionsForUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return models.Pair(habits, completions), nil
}

// EnsureUser returns the user matching u.ID, then u.Email, creating it if
// neither exists.
func EnsureUser(ctx context.Context, p Provider, u models.User) (models.User, error) {
	if u.ID != "" {
		existing, err := p.GetUser(ctx, u.ID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}
	}

	if u.Email != "" {
		existing, err := p.GetUserByEmail(ctx, u.Email)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}
	}

	if u.Email == "" {
		return models.User{}, fmt.Errorf("cannot create user without email")
	}
	return p.CreateUser(ctx, u)
}

// ImportHabits creates each portable habit for userID and upserts its
// completions. It stops at the first failure and returns what was created.
func ImportHabits(ctx context.Context, p Provider, userID string, items []models.PortableHabit) ([]models.HabitWithCompletions, error) {
	out := make([]models.HabitWithCompletions, 0, len(items))
	for _, item := range items {
		h, err := p.CreateHabit(ctx, models.Habit{
			UserID:      userID,
			Title:       item.Title,
			Description: item.Description,
			IsGood:      item.IsGood,
			StartDate:   item.StartDate,
		})
		if err != nil {
			return out, fmt.Errorf("import %q: %w", item.Title, err)
		}

		saved := make([]models.Completion, 0, len(item.Completions))
		for _, c := range item.Completions.Completions(h.ID) {
			sc, err := p.SetCompletion(ctx, c)
			if err != nil {
				return out, fmt.Errorf("import %q completion %s: %w", item.Title, c.Date, err)
			}
			saved = append(saved, sc)
		}
		out = append(out, models.HabitWithCompletions{Habit: h, Completions: saved})
	}
	return out, nil
}

// ExportHabits converts a user's rows into portable habits with completion maps.
func ExportHabits(ctx context.Context, p Provider, userID string) ([]models.PortableHabit, error) {
	items, err := HabitsWithCompletions(ctx, p, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.PortableHabit, 0, len(items))
	for _, item := range items {
		out = append(out, models.PortableHabit{
			Title:       item.Habit.Title,
			Description: item.Habit.Description,
			IsGood:      item.Habit.IsGood,
			StartDate:   item.Habit.StartDate,
			Completions: models.ToCompletionMap(item.Completions),
		})
	}
	return out, nil
}

// PrepareHabit fills server-assigned fields on a new habit.
func PrepareHabit(h models.Habit, now time.Time) models.Habit {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.StartDate == "" {
		h.StartDate = now.Format(constants.DateFormat)
	}
	h.CreatedAt = now.UTC().Truncate(time.Second)
	h.UpdatedAt = h.CreatedAt
	return h
}

// PrepareUser fills server-assigned fields on a new user.
func PrepareUser(u models.User, now time.Time) models.User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now.UTC().Truncate(time.Second)
	u.UpdatedAt = u.CreatedAt
	return u
}
