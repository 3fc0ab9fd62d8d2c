package habits

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/optimistic"
)

const monthFormat = "2006-01"

type HabitLogCmd struct {
	Habit string `arg:"" optional:"" help:"Habit title or ID (default: all habits)."`
	Month string `short:"m" help:"Month to show (YYYY-MM, default: current month)."`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	today := ctx.Today()

	month := today[:len(monthFormat)]
	if c.Month != "" {
		month = c.Month
	}
	first, err := time.Parse(monthFormat, month)
	if err != nil {
		return fmt.Errorf("invalid month: %s (expected YYYY-MM)", c.Month)
	}

	session, err := ctx.OpenSession(bg)
	if err != nil {
		return err
	}

	var entries []optimistic.Entry
	if c.Habit != "" {
		entry, err := session.Find(c.Habit)
		if err != nil {
			return err
		}
		entries = []optimistic.Entry{entry}
	} else {
		entries = session.Coord.State().Entries()
	}
	if len(entries) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	fmt.Printf("Habit log for %s   ✓ success  ✗ recorded  · no record\n\n", first.Format("January 2006"))
	for _, e := range entries {
		renderMonth(os.Stdout, e, first, today)
		fmt.Println()
	}
	return nil
}

// renderMonth prints a Monday-first calendar of first's month for one habit.
// Days before the habit's start and after today are left blank.
func renderMonth(w io.Writer, e optimistic.Entry, first time.Time, today string) {
	fmt.Fprintf(w, "%s (%s, since %s)\n", e.Habit.Title, polarity(e.Habit.IsGood), e.Habit.StartDate)
	fmt.Fprintln(w, " Mo Tu We Th Fr Sa Su")

	// time.Weekday starts on Sunday; shift so Monday is column 0.
	offset := (int(first.Weekday()) + 6) % 7
	var row strings.Builder
	row.WriteString(strings.Repeat("   ", offset))

	col := offset
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		row.WriteString("  " + dayCell(e, d.Format(constants.DateFormat), today))
		col++
		if col == 7 {
			fmt.Fprintln(w, strings.TrimRight(row.String(), " "))
			row.Reset()
			col = 0
		}
	}
	if row.Len() > 0 {
		fmt.Fprintln(w, strings.TrimRight(row.String(), " "))
	}

	successes := 0
	for date := range e.Completions {
		if strings.HasPrefix(date, first.Format(monthFormat)) && e.Success(date) {
			successes++
		}
	}
	fmt.Fprintf(w, " %d success day(s)\n", successes)
}

func dayCell(e optimistic.Entry, date, today string) string {
	if !e.Habit.VisibleOn(date) || date > today {
		return " "
	}
	if _, recorded := e.Completions[date]; !recorded {
		return "·"
	}
	if e.Success(date) {
		return "✓"
	}
	return "✗"
}
