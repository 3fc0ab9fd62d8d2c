package optimistic

import (
	"maps"

	"github.com/greaterodd/odd-trackr/internal/models"
)

// Entry is one habit in local state together with its completions map.
type Entry struct {
	Ident       Ident
	Habit       models.Habit
	Completions models.CompletionMap
}

// Pending reports whether the server has not confirmed the habit yet.
func (e Entry) Pending() bool { return e.Ident.IsLocal() }

// Success is the effective value for date under the habit's polarity. A
// missing record is never a success.
func (e Entry) Success(date string) bool {
	v, ok := e.Completions[date]
	if !ok {
		return false
	}
	return models.Completion{Completed: v}.Success(e.Habit.IsGood)
}

// Records returns the completions as rows, for the streak engine.
func (e Entry) Records() []models.Completion {
	return e.Completions.Completions(e.Habit.ID)
}

func (e Entry) clone() Entry {
	e.Completions = maps.Clone(e.Completions)
	if e.Completions == nil {
		e.Completions = models.CompletionMap{}
	}
	return e
}

// State is the client's local mirror of the user's habits. It is owned by
// the composition root and only mutated through a Coordinator. Like the
// Coordinator it is not safe for concurrent use.
type State struct {
	entries []Entry
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// Len is the number of habits, pending ones included.
func (s *State) Len() int { return len(s.entries) }

// Entries returns a copy of every entry in display order.
func (s *State) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// Visible returns the entries whose habit exists on date.
func (s *State) Visible(date string) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if e.Habit.VisibleOn(date) {
			out = append(out, e.clone())
		}
	}
	return out
}

// Find returns a copy of the entry for id.
func (s *State) Find(id Ident) (Entry, bool) {
	if i := s.index(id); i >= 0 {
		return s.entries[i].clone(), true
	}
	return Entry{}, false
}

func (s *State) index(id Ident) int {
	for i, e := range s.entries {
		if e.Ident == id {
			return i
		}
	}
	return -1
}

func (s *State) insert(at int, e Entry) {
	if at < 0 || at > len(s.entries) {
		at = len(s.entries)
	}
	s.entries = append(s.entries, Entry{})
	copy(s.entries[at+1:], s.entries[at:])
	s.entries[at] = e
}

func (s *State) remove(at int) Entry {
	e := s.entries[at]
	s.entries = append(s.entries[:at], s.entries[at+1:]...)
	return e
}
