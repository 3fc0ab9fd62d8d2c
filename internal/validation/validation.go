package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/models"
)

// ConflictType represents the kind of data problem found in stored habits
type ConflictType string

const (
	ConflictDuplicateHabitTitle   ConflictType = "duplicate_habit_title"
	ConflictInvalidDate           ConflictType = "invalid_date"
	ConflictCompletionBeforeStart ConflictType = "completion_before_start"
	ConflictFutureCompletion      ConflictType = "future_completion"
)

// Conflict represents a detected problem in a user's habit data
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	Items       []string // Habit titles involved
	HabitIDs    []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator checks stored habits and completions for data problems that the
// request validators cannot catch (they span rows or depend on today).
type Validator struct {
	now func() time.Time
}

func New() *Validator {
	return &Validator{now: time.Now}
}

// ValidateHabits checks a user's habits with their completion history.
func (v *Validator) ValidateHabits(items []models.HabitWithCompletions) ValidationResult {
	var result ValidationResult
	today := v.now().Format(constants.DateFormat)

	byTitle := make(map[string][]models.Habit)
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Habit.Title))
		byTitle[key] = append(byTitle[key], item.Habit)
	}
	titles := make([]string, 0, len(byTitle))
	for k := range byTitle {
		titles = append(titles, k)
	}
	sort.Strings(titles)
	for _, k := range titles {
		habits := byTitle[k]
		if len(habits) < 2 {
			continue
		}
		c := Conflict{
			Type:        ConflictDuplicateHabitTitle,
			Description: fmt.Sprintf("%d habits share the title %q", len(habits), habits[0].Title),
		}
		for _, h := range habits {
			c.Items = append(c.Items, h.Title)
			c.HabitIDs = append(c.HabitIDs, h.ID)
		}
		result.Conflicts = append(result.Conflicts, c)
	}

	for _, item := range items {
		h := item.Habit
		if _, err := time.Parse(constants.DateFormat, h.StartDate); err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDate,
				Description: fmt.Sprintf("Habit %q has an invalid start date %q", h.Title, h.StartDate),
				Date:        h.StartDate,
				Items:       []string{h.Title},
				HabitIDs:    []string{h.ID},
			})
		}

		for _, c := range item.Completions {
			conflict := Conflict{Date: c.Date, Items: []string{h.Title}, HabitIDs: []string{h.ID}}
			switch {
			case !isDate(c.Date):
				conflict.Type = ConflictInvalidDate
				conflict.Description = fmt.Sprintf("Habit %q has a completion with invalid date %q", h.Title, c.Date)
			case c.Date < h.StartDate:
				conflict.Type = ConflictCompletionBeforeStart
				conflict.Description = fmt.Sprintf("Habit %q has a completion on %s, before its start date %s", h.Title, c.Date, h.StartDate)
			case c.Date > today:
				conflict.Type = ConflictFutureCompletion
				conflict.Description = fmt.Sprintf("Habit %q has a completion in the future (%s)", h.Title, c.Date)
			default:
				continue
			}
			result.Conflicts = append(result.Conflicts, conflict)
		}
	}

	return result
}

func isDate(s string) bool {
	_, err := time.Parse(constants.DateFormat, s)
	return err == nil
}
