package models

import (
	"reflect"
	"testing"
)

func TestCompletionSuccess(t *testing.T) {
	tests := []struct {
		name      string
		completed bool
		isGood    bool
		want      bool
	}{
		{"good completed", true, true, true},
		{"good not completed", false, true, false},
		{"bad avoided", false, false, true},
		{"bad indulged", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Completion{Completed: tt.completed}).Success(tt.isGood); got != tt.want {
				t.Errorf("Success() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleOn(t *testing.T) {
	h := Habit{StartDate: "2024-06-10"}
	if h.VisibleOn("2024-06-09") {
		t.Error("habit should be hidden before its start date")
	}
	if !h.VisibleOn("2024-06-10") || !h.VisibleOn("2024-07-01") {
		t.Error("habit should be visible from its start date on")
	}
	if !(Habit{}).VisibleOn("2000-01-01") {
		t.Error("habit without start date is always visible")
	}
}

func TestCompletionMap(t *testing.T) {
	rows := []Completion{
		{HabitID: "h1", Date: "2024-06-03", Completed: false},
		{HabitID: "h1", Date: "2024-06-01", Completed: true},
	}
	m := ToCompletionMap(rows)
	if !reflect.DeepEqual(m, CompletionMap{"2024-06-01": true, "2024-06-03": false}) {
		t.Fatalf("ToCompletionMap() = %v", m)
	}

	back := m.Completions("h2")
	want := []Completion{
		{HabitID: "h2", Date: "2024-06-01", Completed: true},
		{HabitID: "h2", Date: "2024-06-03", Completed: false},
	}
	if !reflect.DeepEqual(back, want) {
		t.Errorf("Completions() = %v, want %v", back, want)
	}
}

func TestPair(t *testing.T) {
	habits := []Habit{{ID: "a"}, {ID: "b"}}
	rows := []Completion{
		{HabitID: "a", Date: "2024-06-01"},
		{HabitID: "a", Date: "2024-06-02"},
		{HabitID: "orphan", Date: "2024-06-02"},
	}

	got := Pair(habits, rows)
	if len(got) != 2 {
		t.Fatalf("Pair() returned %d items, want 2", len(got))
	}
	if len(got[0].Completions) != 2 {
		t.Errorf("habit a has %d completions, want 2", len(got[0].Completions))
	}
	if got[1].Completions == nil || len(got[1].Completions) != 0 {
		t.Errorf("habit b completions = %#v, want empty non-nil", got[1].Completions)
	}
}
