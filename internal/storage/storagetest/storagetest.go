// Package storagetest holds behavior tests shared by every storage.Provider
// implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
)

// Factory returns an initialized, empty provider. Cleanup is registered on t.
type Factory func(t *testing.T) storage.Provider

// Run executes the shared provider suite.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, p storage.Provider)
	}{
		{"UserLookup", testUserLookup},
		{"EnsureUser", testEnsureUser},
		{"HabitCRUD", testHabitCRUD},
		{"HabitOwnership", testHabitOwnership},
		{"SetCompletionUpserts", testSetCompletionUpserts},
		{"DeleteHabitCascades", testDeleteHabitCascades},
		{"CompletionsForUserAndDate", testCompletionsForUserAndDate},
		{"HabitsWithCompletions", testHabitsWithCompletions},
		{"ImportExport", testImportExport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func mustUser(t *testing.T, p storage.Provider, email string) models.User {
	t.Helper()
	u, err := p.CreateUser(context.Background(), models.User{Email: email, Name: email})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func mustHabit(t *testing.T, p storage.Provider, userID, title string, isGood bool) models.Habit {
	t.Helper()
	h, err := p.CreateHabit(context.Background(), models.Habit{
		UserID:    userID,
		Title:     title,
		IsGood:    isGood,
		StartDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	return h
}

func testUserLookup(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	u, err := p.CreateUser(ctx, models.User{Email: "ada@example.com", Name: "Ada", TokenHash: "hash-1"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated user id")
	}

	byToken, err := p.GetUserByTokenHash(ctx, "hash-1")
	if err != nil || byToken.ID != u.ID {
		t.Fatalf("GetUserByTokenHash = %+v, %v", byToken, err)
	}

	if _, err := p.CreateUser(ctx, models.User{Email: "ada@example.com"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate email error = %v, want ErrConflict", err)
	}

	u.TokenHash = "hash-2"
	if err := p.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if _, err := p.GetUserByTokenHash(ctx, "hash-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("old token lookup error = %v, want ErrNotFound", err)
	}
}

func testEnsureUser(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	created, err := storage.EnsureUser(ctx, p, models.User{Email: "grace@example.com"})
	if err != nil {
		t.Fatalf("EnsureUser create failed: %v", err)
	}

	byID, err := storage.EnsureUser(ctx, p, models.User{ID: created.ID})
	if err != nil || byID.ID != created.ID {
		t.Fatalf("EnsureUser by id = %+v, %v", byID, err)
	}

	byEmail, err := storage.EnsureUser(ctx, p, models.User{ID: "unknown-id", Email: "grace@example.com"})
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("EnsureUser by email = %+v, %v", byEmail, err)
	}

	if _, err := storage.EnsureUser(ctx, p, models.User{ID: "nobody"}); err == nil {
		t.Error("EnsureUser without email should fail when id is unknown")
	}
}

func testHabitCRUD(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, p, "crud@example.com")

	desc := "ten minutes"
	h, err := p.CreateHabit(ctx, models.Habit{
		UserID:      u.ID,
		Title:       "Meditate",
		Description: &desc,
		IsGood:      true,
		StartDate:   "2024-02-01",
	})
	if err != nil {
		t.Fatalf("CreateHabit failed: %v", err)
	}

	got, err := p.GetHabit(ctx, u.ID, h.ID)
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if got.Title != "Meditate" || got.Description == nil || *got.Description != desc || !got.IsGood || got.StartDate != "2024-02-01" {
		t.Errorf("GetHabit = %+v", got)
	}

	got.Title = "Meditate daily"
	got.Description = nil
	got.IsGood = false
	got.StartDate = "1999-01-01"
	updated, err := p.UpdateHabit(ctx, got)
	if err != nil {
		t.Fatalf("UpdateHabit failed: %v", err)
	}
	if updated.Title != "Meditate daily" || updated.Description != nil || updated.IsGood {
		t.Errorf("UpdateHabit = %+v", updated)
	}
	if updated.StartDate != "2024-02-01" {
		t.Errorf("start date changed to %s", updated.StartDate)
	}

	list, err := p.GetHabitsForUser(ctx, u.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("GetHabitsForUser = %v, %v", list, err)
	}

	if err := p.DeleteHabit(ctx, u.ID, h.ID); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}
	if _, err := p.GetHabit(ctx, u.ID, h.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetHabit after delete error = %v, want ErrNotFound", err)
	}
	if err := p.DeleteHabit(ctx, u.ID, h.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteHabit error = %v, want ErrNotFound", err)
	}
}

func testHabitOwnership(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	owner := mustUser(t, p, "owner@example.com")
	other := mustUser(t, p, "other@example.com")
	h := mustHabit(t, p, owner.ID, "Run", true)

	if _, err := p.GetHabit(ctx, other.ID, h.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign GetHabit error = %v, want ErrNotFound", err)
	}
	if err := p.DeleteHabit(ctx, other.ID, h.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign DeleteHabit error = %v, want ErrNotFound", err)
	}
	h.UserID = other.ID
	if _, err := p.UpdateHabit(ctx, h); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign UpdateHabit error = %v, want ErrNotFound", err)
	}
}

func testSetCompletionUpserts(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, p, "upsert@example.com")
	h := mustHabit(t, p, u.ID, "Read", true)

	for i := 0; i < 2; i++ {
		c, err := p.SetCompletion(ctx, models.Completion{HabitID: h.ID, Date: "2024-03-01", Completed: true})
		if err != nil {
			t.Fatalf("SetCompletion #%d failed: %v", i+1, err)
		}
		if !c.Completed || c.Date != "2024-03-01" {
			t.Errorf("SetCompletion #%d = %+v", i+1, c)
		}
	}

	rows, err := p.GetCompletionsForHabit(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetCompletionsForHabit failed: %v", err)
	}
	if len(rows) != 1 || !rows[0].Completed {
		t.Fatalf("expected exactly one completed row, got %+v", rows)
	}

	if _, err := p.SetCompletion(ctx, models.Completion{HabitID: h.ID, Date: "2024-03-01", Completed: false}); err != nil {
		t.Fatalf("SetCompletion flip failed: %v", err)
	}
	c, err := p.GetCompletion(ctx, h.ID, "2024-03-01")
	if err != nil || c.Completed {
		t.Errorf("GetCompletion after flip = %+v, %v", c, err)
	}

	if err := p.DeleteCompletion(ctx, h.ID, "2024-03-01"); err != nil {
		t.Fatalf("DeleteCompletion failed: %v", err)
	}
	if _, err := p.GetCompletion(ctx, h.ID, "2024-03-01"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetCompletion after delete error = %v, want ErrNotFound", err)
	}

	if _, err := p.SetCompletion(ctx, models.Completion{HabitID: "missing", Date: "2024-03-01", Completed: true}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("SetCompletion on missing habit error = %v, want ErrNotFound", err)
	}
}

func testDeleteHabitCascades(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, p, "cascade@example.com")
	h := mustHabit(t, p, u.ID, "Stretch", true)

	for _, d := range []string{"2024-03-01", "2024-03-02"} {
		if _, err := p.SetCompletion(ctx, models.Completion{HabitID: h.ID, Date: d, Completed: true}); err != nil {
			t.Fatalf("SetCompletion failed: %v", err)
		}
	}
	if err := p.DeleteHabit(ctx, u.ID, h.ID); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}

	rows, err := p.GetCompletionsForHabit(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetCompletionsForHabit failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected completions to cascade, got %d rows", len(rows))
	}
}

func testCompletionsForUserAndDate(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, p, "dates@example.com")
	other := mustUser(t, p, "someone@example.com")
	a := mustHabit(t, p, u.ID, "Alpha", true)
	b := mustHabit(t, p, u.ID, "Beta", false)
	foreign := mustHabit(t, p, other.ID, "Gamma", true)

	set := []models.Completion{
		{HabitID: a.ID, Date: "2024-04-01", Completed: true},
		{HabitID: b.ID, Date: "2024-04-01", Completed: false},
		{HabitID: a.ID, Date: "2024-04-02", Completed: true},
		{HabitID: foreign.ID, Date: "2024-04-01", Completed: true},
	}
	for _, c := range set {
		if _, err := p.SetCompletion(ctx, c); err != nil {
			t.Fatalf("SetCompletion failed: %v", err)
		}
	}

	all, err := p.GetAllCompletionsForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetAllCompletionsForUser failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 completions for user, got %d", len(all))
	}

	day, err := p.GetUserCompletionsForDate(ctx, u.ID, "2024-04-01")
	if err != nil {
		t.Fatalf("GetUserCompletionsForDate failed: %v", err)
	}
	if len(day) != 2 {
		t.Fatalf("expected 2 completions on 2024-04-01, got %d", len(day))
	}
	if day[0].HabitTitle != "Alpha" || day[1].HabitTitle != "Beta" {
		t.Errorf("unexpected titles: %q, %q", day[0].HabitTitle, day[1].HabitTitle)
	}
}

func testHabitsWithCompletions(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, p, "view@example.com")
	a := mustHabit(t, p, u.ID, "Alpha", true)
	mustHabit(t, p, u.ID, "Empty", true)

	if _, err := p.SetCompletion(ctx, models.Completion{HabitID: a.ID, Date: "2024-05-01", Completed: true}); err != nil {
		t.Fatalf("SetCompletion failed: %v", err)
	}

	items, err := storage.HabitsWithCompletions(ctx, p, u.ID)
	if err != nil {
		t.Fatalf("HabitsWithCompletions failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 habits, got %d", len(items))
	}
	for _, item := range items {
		switch item.Habit.Title {
		case "Alpha":
			if len(item.Completions) != 1 {
				t.Errorf("Alpha completions = %d, want 1", len(item.Completions))
			}
		case "Empty":
			if item.Completions == nil || len(item.Completions) != 0 {
				t.Errorf("Empty completions = %#v, want empty slice", item.Completions)
			}
		}
	}
}

func testImportExport(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	u := mustUser(t, p, "import@example.com")

	in := []models.PortableHabit{
		{Title: "Walk", IsGood: true, StartDate: "2024-01-01", Completions: models.CompletionMap{"2024-01-01": true, "2024-01-02": false}},
		{Title: "Snack", IsGood: false, StartDate: "2024-01-01"},
	}
	imported, err := storage.ImportHabits(ctx, p, u.ID, in)
	if err != nil {
		t.Fatalf("ImportHabits failed: %v", err)
	}
	if len(imported) != 2 || len(imported[0].Completions) != 2 {
		t.Fatalf("ImportHabits = %+v", imported)
	}

	out, err := storage.ExportHabits(ctx, p, u.ID)
	if err != nil {
		t.Fatalf("ExportHabits failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 exported habits, got %d", len(out))
	}
	for _, h := range out {
		if h.Title == "Walk" {
			if !h.Completions["2024-01-01"] || h.Completions["2024-01-02"] {
				t.Errorf("Walk completions = %v", h.Completions)
			}
		}
	}
}
