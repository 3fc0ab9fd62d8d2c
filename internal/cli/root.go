package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/greaterodd/odd-trackr/internal/cache"
	"github.com/greaterodd/odd-trackr/internal/client"
	"github.com/greaterodd/odd-trackr/internal/config"
	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/optimistic"
	"github.com/greaterodd/odd-trackr/internal/storage"
	"github.com/greaterodd/odd-trackr/internal/storage/sqlite"
	"github.com/greaterodd/odd-trackr/internal/utils"
)

// ErrNoToken is returned by client commands when no API token is configured.
var ErrNoToken = &hintError{
	err:  errors.New("no API token configured"),
	hint: "run 'trackr user create' on the server, then 'trackr keyring set-token <token>' or set " + constants.EnvAPIToken,
}

type hintError struct {
	err  error
	hint string
}

func (e *hintError) Error() string { return e.err.Error() }
func (e *hintError) Unwrap() error { return e.err }
func (e *hintError) Hint() string  { return e.hint }

type Context struct {
	Config     *config.Config
	ConfigPath string
	Debug      bool

	// Store is the server role's persistence. It is not loaded until a
	// command needs it.
	Store storage.Provider
	// Client and Cache serve the client role.
	Client *client.Client
	Cache  *cache.Cache

	// Now defaults to time.Now in the configured timezone.
	Now func() time.Time
}

// Clock returns the context's clock, falling back to the configured timezone.
func (c *Context) Clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	tz := ""
	if c.Config != nil {
		tz = c.Config.Timezone
	}
	return func() time.Time {
		now, err := utils.NowInTimezone(tz)
		if err != nil {
			return time.Now()
		}
		return now
	}
}

// Today is the current calendar day in DateFormat.
func (c *Context) Today() string {
	return c.Clock()().Format(constants.DateFormat)
}

// ResolveDate accepts "", "today", "yesterday" or a YYYY-MM-DD date.
func (c *Context) ResolveDate(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return c.Today(), nil
	case "yesterday":
		return utils.ShiftDate(c.Today(), -1)
	}
	if !utils.ValidateDate(s) {
		return "", fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD, 'today' or 'yesterday')", s)
	}
	return s, nil
}

// LoadStore opens the server store, hinting at 'trackr init' when it is missing.
func (c *Context) LoadStore(ctx context.Context) error {
	if c.Store == nil {
		return errors.New("no storage configured")
	}
	return c.Store.Load(ctx)
}

// SQLitePath returns the database file when the server store is SQLite.
func (c *Context) SQLitePath() (string, bool) {
	s, ok := c.Store.(*sqlite.Store)
	if !ok {
		return "", false
	}
	return s.GetConfigPath(), true
}

// Session is a coordinator seeded with the server's current habits, for
// commands that mutate habits one at a time.
type Session struct {
	User  models.User
	Coord *optimistic.Coordinator
}

// OpenSession fetches the user and their habits and seeds a coordinator.
// The fresh snapshot is written to the cache.
func (c *Context) OpenSession(ctx context.Context) (*Session, error) {
	if c.Client == nil || c.Config == nil || c.Config.APIToken == "" {
		return nil, ErrNoToken
	}

	user, err := c.Client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", c.Config.APIURL, err)
	}
	items, err := c.Client.Bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load habits: %w", err)
	}
	c.SaveCache(user.ID, items)

	coord := optimistic.New(optimistic.NewState(), c.Client, optimistic.Options{
		Timeout:    c.Config.Timeout,
		Now:        c.Clock(),
		IsNotFound: IsNotFound,
	})
	coord.Replace(items)
	return &Session{User: user, Coord: coord}, nil
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return errors.Is(err, client.ErrNotFound)
}

// Settle runs a pending mutation to completion and reconciles it. A failed
// mutation is returned as an error after local state has been rolled back.
func (s *Session) Settle(ctx context.Context, pending optimistic.Pending) (optimistic.Notice, error) {
	notice, _ := s.Coord.Apply(pending(ctx))
	if notice.Level == optimistic.NoticeError {
		return notice, fmt.Errorf("%s: %w", notice.Message, notice.Err)
	}
	return notice, nil
}

// Find resolves a habit by id, or by case-insensitive title when unique.
func (s *Session) Find(ref string) (optimistic.Entry, error) {
	if e, ok := s.Coord.State().Find(optimistic.Persisted(ref)); ok {
		return e, nil
	}

	var matches []optimistic.Entry
	for _, e := range s.Coord.State().Entries() {
		if strings.EqualFold(e.Habit.Title, strings.TrimSpace(ref)) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return optimistic.Entry{}, fmt.Errorf("habit %q not found", ref)
	case 1:
		return matches[0], nil
	default:
		return optimistic.Entry{}, fmt.Errorf("%d habits are titled %q; use the habit id instead", len(matches), ref)
	}
}

// SaveCache writes a confirmed snapshot. Failures are logged, not returned.
func (c *Context) SaveCache(userID string, items []models.HabitWithCompletions) {
	if c.Cache == nil {
		return
	}
	if err := c.Cache.Save(userID, items); err != nil {
		logger.Warn("Failed to write habit cache", "error", err)
	}
}

// SnapshotCache writes the coordinator's confirmed entries to the cache.
func (c *Context) SnapshotCache(s *Session) {
	var items []models.HabitWithCompletions
	for _, e := range s.Coord.State().Entries() {
		if e.Pending() {
			continue
		}
		items = append(items, models.HabitWithCompletions{Habit: e.Habit, Completions: e.Records()})
	}
	c.SaveCache(s.User.ID, items)
}

// Confirm asks a yes/no question on stdin unless yes is already set.
func Confirm(prompt string, yes bool) bool {
	if yes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	if _, err := fmt.Fscanln(os.Stdin, &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
