package models

import "sort"

// CompletionMap is a per-habit date -> completed map, the shape used when
// importing or exporting local data.
type CompletionMap map[string]bool

// ToCompletionMap folds completion rows for one habit into a CompletionMap.
func ToCompletionMap(rows []Completion) CompletionMap {
	m := make(CompletionMap, len(rows))
	for _, c := range rows {
		m[c.Date] = c.Completed
	}
	return m
}

// Completions expands the map back into rows for habitID, sorted by date.
func (m CompletionMap) Completions(habitID string) []Completion {
	out := make([]Completion, 0, len(m))
	for date, done := range m {
		out = append(out, Completion{HabitID: habitID, Date: date, Completed: done})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// GroupCompletions buckets a user's completion rows by habit id.
func GroupCompletions(rows []Completion) map[string][]Completion {
	out := make(map[string][]Completion)
	for _, c := range rows {
		out[c.HabitID] = append(out[c.HabitID], c)
	}
	return out
}

// PortableHabit is a habit plus its completions map, used by import/export.
type PortableHabit struct {
	Title       string        `json:"title" validate:"required,min=2,max=120"`
	Description *string       `json:"description,omitempty" validate:"omitempty,max=1000"`
	IsGood      bool          `json:"isGood"`
	StartDate   string        `json:"startDate" validate:"omitempty,calendardate"`
	Completions CompletionMap `json:"completions,omitempty" validate:"dive,keys,calendardate,endkeys"`
}

// Pair joins habits with their completion rows. Habits without rows get an
// empty, non-nil slice.
func Pair(habits []Habit, rows []Completion) []HabitWithCompletions {
	byHabit := GroupCompletions(rows)
	out := make([]HabitWithCompletions, 0, len(habits))
	for _, h := range habits {
		cs := byHabit[h.ID]
		if cs == nil {
			cs = []Completion{}
		}
		out = append(out, HabitWithCompletions{Habit: h, Completions: cs})
	}
	return out
}
