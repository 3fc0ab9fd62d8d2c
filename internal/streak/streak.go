// Package streak derives current and longest streaks from a habit's
// completion history.
package streak

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/utils"
)

// ErrMalformedDate is returned in Strict mode when a record's date is not a
// valid YYYY-MM-DD calendar date.
var ErrMalformedDate = errors.New("malformed completion date")

// Mode controls how malformed dates are handled.
type Mode int

const (
	// Lenient treats a malformed date as a non-success day and logs it.
	Lenient Mode = iota
	// Strict fails the whole calculation on the first malformed date.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// Result holds the two derived streak lengths, in days.
type Result struct {
	Current int `json:"currentStreak"`
	Longest int `json:"longestStreak"`
}

// Calculator computes streaks relative to "today" as given by its clock.
type Calculator struct {
	mode Mode
	now  func() time.Time
	warn func(msg string, keyvals ...interface{})

	onSkip func(models.Completion)
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithMode sets the malformed date policy.
func WithMode(m Mode) Option {
	return func(c *Calculator) { c.mode = m }
}

// WithClock overrides time.Now. The returned time's location defines the
// calendar day that counts as today.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// WithSkipHook is called once for every record a Lenient calculator skips,
// after the warning is logged.
func WithSkipHook(fn func(models.Completion)) Option {
	return func(c *Calculator) { c.onSkip = fn }
}

// New returns a Lenient calculator using the local clock.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		mode: Lenient,
		now:  time.Now,
		warn: logger.Warn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// At returns a copy of c anchored on a fixed day. Callers that know the
// user's calendar day use it instead of the calculator's own clock.
func (c *Calculator) At(today time.Time) *Calculator {
	cp := *c
	cp.now = func() time.Time { return today }
	return &cp
}

// Mode reports the calculator's malformed date policy.
func (c *Calculator) Mode() Mode { return c.mode }

// Calculate returns the streaks for one habit's completion records.
// Records may arrive in any order.
func (c *Calculator) Calculate(records []models.Completion, isGood bool) (Result, error) {
	if len(records) == 0 {
		return Result{}, nil
	}

	days, err := c.successDays(records, isGood)
	if err != nil {
		return Result{}, err
	}
	if len(days) == 0 {
		return Result{}, nil
	}

	today := utils.StartOfDay(c.now())
	res := Result{}

	// current: anchored at today or yesterday, then exact one-day steps back
	if gap := utils.DaysBetween(days[0], today); gap == 0 || gap == 1 {
		res.Current = 1
		for i := 1; i < len(days); i++ {
			if utils.DaysBetween(days[i], days[i-1]) != 1 {
				break
			}
			res.Current++
		}
	}

	res.Longest = res.Current
	run := 1
	for i := 1; i < len(days); i++ {
		if utils.DaysBetween(days[i], days[i-1]) == 1 {
			run++
			continue
		}
		res.Longest = max(res.Longest, run)
		run = 1
	}
	res.Longest = max(res.Longest, run)

	return res, nil
}

// successDays returns the distinct success days sorted most recent first.
func (c *Calculator) successDays(records []models.Completion, isGood bool) ([]time.Time, error) {
	seen := make(map[string]struct{}, len(records))
	days := make([]time.Time, 0, len(records))

	for _, r := range records {
		d, err := time.Parse(constants.DateFormat, r.Date)
		if err != nil {
			if c.mode == Strict {
				return nil, fmt.Errorf("%w: habit %s: %q", ErrMalformedDate, r.HabitID, r.Date)
			}
			c.warn("Skipping completion with malformed date", "habit", r.HabitID, "date", r.Date)
			if c.onSkip != nil {
				c.onSkip(r)
			}
			continue
		}
		if !r.Success(isGood) {
			continue
		}
		if _, dup := seen[r.Date]; dup {
			continue
		}
		seen[r.Date] = struct{}{}
		days = append(days, d)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days, nil
}

// ForHabits attaches streaks to each habit. In Strict mode the first
// malformed date aborts the whole batch.
func (c *Calculator) ForHabits(items []models.HabitWithCompletions) ([]models.HabitWithStreaks, error) {
	out := make([]models.HabitWithStreaks, 0, len(items))
	for _, item := range items {
		res, err := c.Calculate(item.Completions, item.Habit.IsGood)
		if err != nil {
			return nil, err
		}
		out = append(out, models.HabitWithStreaks{
			Habit:         item.Habit,
			CurrentStreak: res.Current,
			LongestStreak: res.Longest,
		})
	}
	return out, nil
}

// Calculate is the Strict, pure form anchored at the given day.
func Calculate(records []models.Completion, isGood bool, today time.Time) (Result, error) {
	return New(WithMode(Strict), WithClock(func() time.Time { return today })).Calculate(records, isGood)
}
