package storage

import "errors"

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint (e.g. user email) is violated.
	ErrConflict = errors.New("already exists")
	// ErrNotInitialized is returned by Load before Init has created the database.
	ErrNotInitialized = errors.New("storage not initialized")
)

// NotInitializedError wraps ErrNotInitialized with a user-facing hint.
type NotInitializedError struct {
	Path string
}

func (e *NotInitializedError) Error() string {
	return "storage not initialized at " + e.Path
}

func (e *NotInitializedError) Unwrap() error { return ErrNotInitialized }

// Hint suggests the command that fixes the error.
func (e *NotInitializedError) Hint() string { return "run 'trackr init' first" }
