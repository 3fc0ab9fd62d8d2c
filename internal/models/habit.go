package models

import "time"

// Habit is a behavior a user is building (IsGood) or avoiding (!IsGood).
type Habit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	IsGood      bool      `json:"isGood"`
	StartDate   string    `json:"startDate"` // YYYY-MM-DD, habit is hidden before this day
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VisibleOn reports whether the habit exists on the given YYYY-MM-DD day.
// Dates in DateFormat compare correctly as strings.
func (h Habit) VisibleOn(day string) bool {
	return h.StartDate == "" || day >= h.StartDate
}

// Completion is a single day's record for a habit, unique per (HabitID, Date).
type Completion struct {
	HabitID   string `json:"habitId"`
	Date      string `json:"date"` // YYYY-MM-DD
	Completed bool   `json:"completed"`
}

// Success reports whether the record counts as a success day for a habit of
// the given polarity. Good habits succeed on completed=true; bad habits only
// on an explicit completed=false.
func (c Completion) Success(isGood bool) bool {
	if isGood {
		return c.Completed
	}
	return !c.Completed
}

// DatedCompletion is a completion joined with the owning habit's title.
type DatedCompletion struct {
	Completion
	HabitTitle string `json:"habitTitle"`
}

// HabitWithCompletions pairs a habit with its full completion history.
type HabitWithCompletions struct {
	Habit       Habit        `json:"habit"`
	Completions []Completion `json:"completions"`
}

// HabitWithStreaks is the derived streak view. It is never persisted.
type HabitWithStreaks struct {
	Habit
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
}
