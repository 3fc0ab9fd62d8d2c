// Package cache stores the last confirmed habit list per user on disk so the
// client can draw immediately while it refreshes from the server.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/models"
)

// ErrMiss is returned when there is no usable entry: missing, unreadable
// or older than the TTL.
var ErrMiss = errors.New("cache miss")

// ErrBadUserID rejects user ids that cannot be used as a file name.
var ErrBadUserID = errors.New("invalid user id for cache")

type entry struct {
	SavedAt time.Time                     `json:"savedAt"`
	UserID  string                        `json:"userId"`
	Habits  []models.HabitWithCompletions `json:"habits"`
}

type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// New returns a cache rooted at <configDir>/cache. A zero ttl disables reads.
func New(configDir string, ttl time.Duration) *Cache {
	return &Cache{
		dir: filepath.Join(configDir, constants.CacheDirName),
		ttl: ttl,
		now: time.Now,
	}
}

func (c *Cache) path(userID string) (string, error) {
	if userID == "" || userID == "." || userID == ".." ||
		strings.ContainsAny(userID, `/\`) || filepath.Base(userID) != userID {
		return "", fmt.Errorf("%w: %q", ErrBadUserID, userID)
	}
	return filepath.Join(c.dir, "habits-"+userID+".json"), nil
}

// Load returns the cached habits for userID and when they were saved.
func (c *Cache) Load(userID string) ([]models.HabitWithCompletions, time.Time, error) {
	path, err := c.path(userID)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, ErrMiss
		}
		return nil, time.Time{}, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		logger.Warn("Ignoring corrupt habit cache", "user", userID, "error", err)
		return nil, time.Time{}, ErrMiss
	}
	if e.UserID != userID || c.now().Sub(e.SavedAt) > c.ttl {
		return nil, time.Time{}, ErrMiss
	}
	return e.Habits, e.SavedAt, nil
}

// Save replaces the cached habits for userID. The write goes through a temp
// file and rename so readers never see a partial file.
func (c *Cache) Save(userID string, habits []models.HabitWithCompletions) error {
	path, err := c.path(userID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(entry{SavedAt: c.now().UTC(), UserID: userID, Habits: habits})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, ".habits-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Clear drops the entry for userID, if any.
func (c *Cache) Clear(userID string) error {
	path, err := c.path(userID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
