package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/optimistic"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits."`
	Toggle HabitToggleCmd `cmd:"" help:"Toggle a habit's success for a day."`
	Edit   HabitEditCmd   `cmd:"" help:"Edit a habit's title, description or polarity."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit and its history."`
	Log    HabitLogCmd    `cmd:"" help:"Show a month calendar per habit."`
}

type HabitAddCmd struct {
	Title       string `arg:"" help:"Habit title."`
	Bad         bool   `help:"Track a habit to avoid instead of one to build."`
	Description string `short:"d" help:"Optional description."`
	Start       string `short:"s" help:"Start date (YYYY-MM-DD, default: today)."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	session, err := ctx.OpenSession(bg)
	if err != nil {
		return err
	}

	isGood := !c.Bad
	req := validation.CreateHabitRequest{
		Title:  c.Title,
		IsGood: &isGood,
	}
	if c.Description != "" {
		req.Description = &c.Description
	}
	if c.Start != "" {
		if req.StartDate, err = ctx.ResolveDate(c.Start); err != nil {
			return err
		}
	}

	local, pending, err := session.Coord.CreateHabit(req)
	if err != nil {
		return err
	}
	if _, err := session.Settle(bg, pending); err != nil {
		return err
	}
	ctx.SnapshotCache(session)

	entry, _ := session.Coord.State().Find(session.Coord.Resolve(local))
	fmt.Printf("Added %s habit: %s (ID: %s)\n", polarity(entry.Habit.IsGood), entry.Habit.Title, entry.Habit.ID)
	return nil
}

type HabitListCmd struct {
	Date string `help:"Show status for this day (YYYY-MM-DD, today, yesterday)." default:"today"`
	All  bool   `help:"Include habits that start after the date."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	session, err := ctx.OpenSession(bg)
	if err != nil {
		return err
	}

	entries := session.Coord.State().Visible(date)
	if c.All {
		entries = session.Coord.State().Entries()
	}
	if len(entries) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	fmt.Printf("Habits for %s:\n\n", date)
	for _, e := range entries {
		status := statusMark(e, date)
		fmt.Printf("%s %-30s %-5s since %s  %s\n", status, e.Habit.Title, polarity(e.Habit.IsGood), e.Habit.StartDate, e.Habit.ID)
		if e.Habit.Description != nil {
			fmt.Printf("      %s\n", *e.Habit.Description)
		}
	}
	return nil
}

type HabitToggleCmd struct {
	Habit string `arg:"" help:"Habit title or ID."`
	Date  string `help:"Day to toggle (YYYY-MM-DD, today, yesterday)." default:"today"`
}

func (c *HabitToggleCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	session, err := ctx.OpenSession(bg)
	if err != nil {
		return err
	}

	entry, err := session.Find(c.Habit)
	if err != nil {
		return err
	}
	pending, err := session.Coord.ToggleCompletion(entry.Ident, date)
	if errors.Is(err, optimistic.ErrNotVisible) {
		return fmt.Errorf("%q starts on %s", entry.Habit.Title, entry.Habit.StartDate)
	}
	if err != nil {
		return err
	}
	if _, err := session.Settle(bg, pending); err != nil {
		return err
	}
	ctx.SnapshotCache(session)

	entry, _ = session.Coord.State().Find(entry.Ident)
	fmt.Printf("%s on %s: %s\n", entry.Habit.Title, date, dayLabel(entry.Habit.IsGood, entry.Success(date)))
	return nil
}

type HabitEditCmd struct {
	Habit       string  `arg:"" help:"Habit title or ID."`
	Title       *string `help:"New title."`
	Description *string `short:"d" help:"New description (empty string clears it)."`
	Good        bool    `help:"Make this a habit to build." xor:"polarity"`
	Bad         bool    `help:"Make this a habit to avoid." xor:"polarity"`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	session, err := ctx.OpenSession(bg)
	if err != nil {
		return err
	}
	entry, err := session.Find(c.Habit)
	if err != nil {
		return err
	}

	req := validation.UpdateHabitRequest{Title: c.Title, Description: c.Description}
	if c.Good || c.Bad {
		isGood := c.Good
		req.IsGood = &isGood
	}
	if req.Title == nil && req.Description == nil && req.IsGood == nil {
		return errors.New("nothing to change: pass --title, --description, --good or --bad")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	habit, err := ctx.Client.UpdateHabit(bg, entry.Habit.ID, req)
	if err != nil {
		return err
	}
	fmt.Printf("Updated habit: %s (%s)\n", habit.Title, polarity(habit.IsGood))
	if req.IsGood != nil && *req.IsGood != entry.Habit.IsGood {
		fmt.Println("Note: existing records keep their stored values, so past success days flip.")
	}
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit title or ID."`
	Yes   bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	session, err := ctx.OpenSession(bg)
	if err != nil {
		return err
	}
	entry, err := session.Find(c.Habit)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("Delete %q and its %d record(s)?", entry.Habit.Title, len(entry.Completions))
	if !cli.Confirm(prompt, c.Yes) {
		fmt.Println("Cancelled.")
		return nil
	}

	pending, err := session.Coord.DeleteHabit(entry.Ident)
	if err != nil {
		return err
	}
	notice, err := session.Settle(bg, pending)
	if err != nil {
		return err
	}
	ctx.SnapshotCache(session)
	fmt.Println(notice.Message)
	return nil
}

func polarity(isGood bool) string {
	if isGood {
		return "good"
	}
	return "bad"
}

// statusMark renders one day: [x] success, [-] recorded non-success, [ ] no record.
func statusMark(e optimistic.Entry, date string) string {
	if !e.Habit.VisibleOn(date) {
		return "   "
	}
	if _, recorded := e.Completions[date]; !recorded {
		return "[ ]"
	}
	if e.Success(date) {
		return "[x]"
	}
	return "[-]"
}

func dayLabel(isGood, success bool) string {
	switch {
	case isGood && success:
		return "done"
	case isGood:
		return "not done"
	case success:
		return "avoided"
	default:
		return "slipped"
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s + strings.Repeat(" ", n-len([]rune(s)))
	}
	if n >= 5 {
		return string([]rune(s)[:n-3]) + "..."
	}
	return string([]rune(s)[:n])
}
