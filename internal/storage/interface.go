package storage

import (
	"context"

	"github.com/greaterodd/odd-trackr/internal/migration"
	"github.com/greaterodd/odd-trackr/internal/models"
)

// Provider is the persistence layer behind the HTTP API.
type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	Migrations() (*migration.Runner, error)

	// Users
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByTokenHash(ctx context.Context, hash string) (models.User, error)
	UpdateUser(ctx context.Context, u models.User) error

	// Habits
	CreateHabit(ctx context.Context, h models.Habit) (models.Habit, error)
	GetHabit(ctx context.Context, userID, id string) (models.Habit, error)
	GetHabitsForUser(ctx context.Context, userID string) ([]models.Habit, error)
	UpdateHabit(ctx context.Context, h models.Habit) (models.Habit, error)
	// DeleteHabit removes the habit and cascades its completions.
	DeleteHabit(ctx context.Context, userID, id string) error

	// Completions
	// SetCompletion upserts on (habit, date).
	SetCompletion(ctx context.Context, c models.Completion) (models.Completion, error)
	GetCompletion(ctx context.Context, habitID, date string) (models.Completion, error)
	GetCompletionsForHabit(ctx context.Context, habitID string) ([]models.Completion, error)
	GetAllCompletionsForUser(ctx context.Context, userID string) ([]models.Completion, error)
	GetUserCompletionsForDate(ctx context.Context, userID, date string) ([]models.DatedCompletion, error)
	DeleteCompletion(ctx context.Context, habitID, date string) error

	// Utils
	GetConfigPath() string
}
