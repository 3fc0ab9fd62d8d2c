package habits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/streak"
)

type StreaksCmd struct {
	Strict bool   `help:"Fail on malformed completion dates instead of skipping them."`
	Sort   string `help:"Sort by current, longest or title." enum:"current,longest,title" default:"current"`
}

func (c *StreaksCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if ctx.Client == nil || ctx.Config == nil || ctx.Config.APIToken == "" {
		return cli.ErrNoToken
	}

	var (
		rows []models.HabitWithStreaks
		err  error
	)
	if c.Strict {
		// Strict mode runs locally; the server always skips bad dates.
		var items []models.HabitWithCompletions
		if items, err = ctx.Client.Bootstrap(bg); err != nil {
			return fmt.Errorf("failed to load habits: %w", err)
		}
		calc := streak.New(streak.WithMode(streak.Strict), streak.WithClock(ctx.Clock()))
		rows, err = calc.ForHabits(items)
		if errors.Is(err, streak.ErrMalformedDate) {
			logger.Warn("Strict streak calculation failed", "error", err)
			return fmt.Errorf("%w (run without --strict to skip such records)", err)
		}
	} else {
		rows, err = ctx.Client.Streaks(bg, ctx.Today())
	}
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Println("No habits found.")
		return nil
	}
	sortStreaks(rows, c.Sort)
	renderStreaks(os.Stdout, rows)
	return nil
}

func sortStreaks(rows []models.HabitWithStreaks, by string) {
	sort.SliceStable(rows, func(i, j int) bool {
		switch by {
		case "longest":
			return rows[i].LongestStreak > rows[j].LongestStreak
		case "title":
			return rows[i].Title < rows[j].Title
		default:
			return rows[i].CurrentStreak > rows[j].CurrentStreak
		}
	})
}

func renderStreaks(w io.Writer, rows []models.HabitWithStreaks) {
	fmt.Fprintf(w, "%s %-5s %8s %8s\n", truncate("Habit", 30), "Kind", "Current", "Longest")
	for _, r := range rows {
		fmt.Fprintf(w, "%s %-5s %8d %8d\n", truncate(r.Title, 30), polarity(r.IsGood), r.CurrentStreak, r.LongestStreak)
	}
}

type TodayCmd struct{}

func (c *TodayCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	session, err := ctx.OpenSession(bg)
	if err != nil {
		return err
	}

	today := ctx.Today()
	entries := session.Coord.State().Visible(today)
	if len(entries) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	fmt.Printf("Habits for %s:\n\n", today)
	done := 0
	for _, e := range entries {
		if e.Success(today) {
			done++
		}
		fmt.Printf("%s %s\n", statusMark(e, today), e.Habit.Title)
	}
	fmt.Printf("\nSucceeded: %d/%d\n", done, len(entries))
	return nil
}
