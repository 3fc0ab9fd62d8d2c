package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/models"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// calendardate accepts YYYY-MM-DD strings that name a real day.
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(constants.DateFormat, fl.Field().String())
		return err == nil
	})
	return v
}

type CreateHabitRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	IsGood      *bool   `json:"isGood" validate:"required"`
	StartDate   string  `json:"startDate,omitempty" validate:"omitempty,calendardate"`
}

// Habit converts the request into an unsaved habit owned by userID.
func (r CreateHabitRequest) Habit(userID string) models.Habit {
	return models.Habit{
		UserID:      userID,
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		IsGood:      *r.IsGood,
		StartDate:   r.StartDate,
	}
}

// UpdateHabitRequest carries only the mutable habit fields. The start date
// cannot be changed after creation.
type UpdateHabitRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=2,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	IsGood      *bool   `json:"isGood,omitempty"`
}

// Apply copies the set fields onto h.
func (r UpdateHabitRequest) Apply(h models.Habit) models.Habit {
	if r.Title != nil {
		h.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		h.Description = r.Description
		if *r.Description == "" {
			h.Description = nil
		}
	}
	if r.IsGood != nil {
		h.IsGood = *r.IsGood
	}
	return h
}

type SetCompletionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

type ImportRequest struct {
	Habits []models.PortableHabit `json:"habits" validate:"required,min=1,dive"`
}

// FieldError is one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestError lists every invalid field in a request body.
type RequestError struct {
	Fields []FieldError
}

func (e *RequestError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// Struct validates a request body. Validation failures come back as a
// *RequestError; anything else means the struct itself could not be checked.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &RequestError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

// Date checks a single YYYY-MM-DD value, e.g. a path parameter.
func Date(field, value string) error {
	if _, err := time.Parse(constants.DateFormat, value); err != nil {
		return &RequestError{Fields: []FieldError{{Field: field, Message: "must be a date in YYYY-MM-DD format"}}}
	}
	return nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return lowerFirst(ns)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "calendardate":
		return "must be a date in YYYY-MM-DD format"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
