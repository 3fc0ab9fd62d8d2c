package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/greaterodd/odd-trackr/internal/models"
)

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }

func TestCreateHabitRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateHabitRequest
		wantField string
	}{
		{"valid", CreateHabitRequest{Title: "Read", IsGood: boolPtr(true), StartDate: "2024-03-01"}, ""},
		{"valid without start date", CreateHabitRequest{Title: "Read", IsGood: boolPtr(false)}, ""},
		{"title too short", CreateHabitRequest{Title: "R", IsGood: boolPtr(true)}, "title"},
		{"title missing", CreateHabitRequest{IsGood: boolPtr(true)}, "title"},
		{"title too long", CreateHabitRequest{Title: strings.Repeat("x", 121), IsGood: boolPtr(true)}, "title"},
		{"polarity missing", CreateHabitRequest{Title: "Read"}, "isGood"},
		{"bad start date", CreateHabitRequest{Title: "Read", IsGood: boolPtr(true), StartDate: "2024-02-30"}, "startDate"},
		{"long description", CreateHabitRequest{Title: "Read", IsGood: boolPtr(true), Description: strPtr(strings.Repeat("d", 1001))}, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Struct() unexpected error: %v", err)
				}
				return
			}
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("Struct() error = %v, want *RequestError", err)
			}
			found := false
			for _, f := range reqErr.Fields {
				if f.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("fields = %+v, want one for %q", reqErr.Fields, tt.wantField)
			}
		})
	}
}

func TestCreateHabitRequestHabit(t *testing.T) {
	req := CreateHabitRequest{Title: "  Read  ", IsGood: boolPtr(false), StartDate: "2024-03-01"}
	h := req.Habit("user-1")
	if h.Title != "Read" || h.UserID != "user-1" || h.IsGood || h.StartDate != "2024-03-01" {
		t.Errorf("Habit() = %+v", h)
	}
}

func TestUpdateHabitRequestApply(t *testing.T) {
	base := models.Habit{ID: "h1", Title: "Read", Description: strPtr("books"), IsGood: true, StartDate: "2024-01-01"}

	got := UpdateHabitRequest{Title: strPtr("Read more")}.Apply(base)
	if got.Title != "Read more" || got.Description == nil || !got.IsGood {
		t.Errorf("partial update changed unrelated fields: %+v", got)
	}

	got = UpdateHabitRequest{Description: strPtr(""), IsGood: boolPtr(false)}.Apply(base)
	if got.Description != nil {
		t.Errorf("empty description should clear it, got %q", *got.Description)
	}
	if got.IsGood {
		t.Error("IsGood should be false")
	}
	if got.StartDate != base.StartDate {
		t.Error("start date must never change")
	}
}

func TestSetCompletionRequest(t *testing.T) {
	if err := Struct(SetCompletionRequest{}); err == nil {
		t.Error("missing completed should fail")
	}
	if err := Struct(SetCompletionRequest{Completed: boolPtr(false)}); err != nil {
		t.Errorf("explicit false should pass: %v", err)
	}
}

func TestImportRequest(t *testing.T) {
	valid := ImportRequest{Habits: []models.PortableHabit{{
		Title:       "Walk",
		IsGood:      true,
		StartDate:   "2024-01-01",
		Completions: models.CompletionMap{"2024-01-02": true},
	}}}
	if err := Struct(valid); err != nil {
		t.Fatalf("valid import rejected: %v", err)
	}

	if err := Struct(ImportRequest{}); err == nil {
		t.Error("empty import should fail")
	}

	bad := ImportRequest{Habits: []models.PortableHabit{{
		Title:       "Walk",
		Completions: models.CompletionMap{"01/02/2024": true},
	}}}
	err := Struct(bad)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("malformed completion key should fail, got %v", err)
	}
}

func TestDate(t *testing.T) {
	if err := Date("date", "2024-06-01"); err != nil {
		t.Errorf("Date() unexpected error: %v", err)
	}
	err := Date("date", "June 1")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Fields[0].Field != "date" {
		t.Errorf("Date() error = %v, want RequestError for date", err)
	}
}
