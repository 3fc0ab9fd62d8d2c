package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/greaterodd/odd-trackr/internal/validation"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx response from the trackr server.
type APIError struct {
	Status    int
	Message   string
	Fields    []validation.FieldError
	RequestID string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		msg += ": " + strings.Join(parts, "; ")
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, msg)
}

// Is lets callers match on ErrNotFound and ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

func (e *APIError) Hint() string {
	switch e.Status {
	case http.StatusUnauthorized:
		return "create a token with 'trackr user create' and store it with 'trackr keyring set-token'"
	case http.StatusTooManyRequests:
		return "slow down; the server limits requests per user"
	}
	return ""
}
