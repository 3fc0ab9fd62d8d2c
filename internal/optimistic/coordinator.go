// Package optimistic applies habit mutations to local state immediately and
// reconciles them with the server once it answers.
//
// Every mutation is split in two. The synchronous half changes State and
// returns a Pending func; the caller runs that func off the UI loop (it only
// talks to the Backend) and hands its Result back to Apply on the loop. All
// Coordinator and State methods must be called from that one goroutine.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

var (
	// ErrPending rejects toggles and deletes on a habit the server has not
	// confirmed yet.
	ErrPending = errors.New("habit is still being saved")
	// ErrUnknownHabit is returned for an ident that is not in local state.
	ErrUnknownHabit = errors.New("habit not found")
	// ErrNotVisible rejects a toggle on a day before the habit's start date.
	ErrNotVisible = errors.New("habit has not started on that date")
)

// Backend persists mutations. *client.Client satisfies it.
type Backend interface {
	CreateHabit(ctx context.Context, req validation.CreateHabitRequest) (models.Habit, error)
	SetCompletion(ctx context.Context, habitID, date string, completed bool) (models.Completion, error)
	DeleteHabit(ctx context.Context, habitID string) error
}

// Pending is the asynchronous half of a mutation.
type Pending func(ctx context.Context) Result

// Result is a backend outcome waiting to be reconciled by Apply.
type Result interface {
	apply(c *Coordinator) (Notice, bool)
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a transient message for the user about a reconciled mutation.
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

type Options struct {
	// Timeout bounds each backend call. Zero means DefaultRequestTimeout.
	Timeout time.Duration
	// Now supplies today's date for new habits. Nil means time.Now.
	Now func() time.Time
	// IsNotFound reports whether a delete failed because the habit is
	// already gone on the server, which counts as success.
	IsNotFound func(error) bool
}

type toggleKey struct {
	habitID string
	date    string
}

type Coordinator struct {
	state   *State
	backend Backend
	opts    Options

	seq uint64
	// toggles holds the newest sequence number issued per (habit, date).
	toggles map[toggleKey]uint64
	// deleting holds habits whose delete is in flight.
	deleting map[string]uint64
	// settled holds toggle outcomes that arrived while their habit was out
	// for deletion, replayed onto the entry if the delete is rolled back.
	settled map[string][]settledToggle
	// resolved maps confirmed Local idents to their Persisted ident.
	resolved map[Ident]Ident
}

func New(state *State, backend Backend, opts Options) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultRequestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IsNotFound == nil {
		opts.IsNotFound = func(error) bool { return false }
	}
	return &Coordinator{
		state:    state,
		backend:  backend,
		opts:     opts,
		toggles:  make(map[toggleKey]uint64),
		deleting: make(map[string]uint64),
		settled:  make(map[string][]settledToggle),
		resolved: make(map[Ident]Ident),
	}
}

func (c *Coordinator) State() *State { return c.state }

func (c *Coordinator) next() uint64 {
	c.seq++
	return c.seq
}

// InFlight reports how many toggles and deletes are awaiting the server.
func (c *Coordinator) InFlight() int {
	return len(c.toggles) + len(c.deleting)
}

// Resolve maps a Local ident to the Persisted ident it was confirmed as.
// Any other ident is returned unchanged.
func (c *Coordinator) Resolve(id Ident) Ident {
	if p, ok := c.resolved[id]; ok {
		return p
	}
	return id
}

// Apply reconciles a backend outcome with local state. The bool is false
// when there is nothing to tell the user.
func (c *Coordinator) Apply(r Result) (Notice, bool) {
	return r.apply(c)
}

// Replace swaps in a fresh server snapshot. Unconfirmed creates, in-flight
// toggles and in-flight deletes are layered back on top so a refresh never
// undoes what the user just did.
func (c *Coordinator) Replace(items []models.HabitWithCompletions) {
	var locals []Entry
	for _, e := range c.state.entries {
		if e.Ident.IsLocal() {
			locals = append(locals, e)
		}
	}
	overlay := make(map[toggleKey]*bool, len(c.toggles))
	for key := range c.toggles {
		if e, ok := c.state.Find(Persisted(key.habitID)); ok {
			if v, ok := e.Completions[key.date]; ok {
				overlay[key] = &v
			} else {
				overlay[key] = nil
			}
		}
	}

	entries := make([]Entry, 0, len(items)+len(locals))
	for _, item := range items {
		if _, ok := c.deleting[item.Habit.ID]; ok {
			continue
		}
		entries = append(entries, Entry{
			Ident:       Persisted(item.Habit.ID),
			Habit:       item.Habit,
			Completions: models.ToCompletionMap(item.Completions),
		})
	}
	c.state.entries = append(entries, locals...)

	for key, v := range overlay {
		i := c.state.index(Persisted(key.habitID))
		if i < 0 {
			continue
		}
		if v == nil {
			delete(c.state.entries[i].Completions, key.date)
		} else {
			c.state.entries[i].Completions[key.date] = *v
		}
	}
}

// CreateHabit inserts the habit under a Local ident right away. On success
// the server's entry takes its place; on failure it is removed.
func (c *Coordinator) CreateHabit(req validation.CreateHabitRequest) (Ident, Pending, error) {
	if req.StartDate == "" {
		req.StartDate = c.opts.Now().Format(constants.DateFormat)
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct(req); err != nil {
		return Ident{}, nil, err
	}

	id := Local(localPrefix + uuid.NewString())
	seq := c.next()
	now := c.opts.Now().UTC()
	c.state.insert(-1, Entry{
		Ident: id,
		Habit: models.Habit{
			Title:       req.Title,
			Description: req.Description,
			IsGood:      *req.IsGood,
			StartDate:   req.StartDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Completions: models.CompletionMap{},
	})
	logger.Debug("Optimistic create", "ident", id, "seq", seq)

	backend, timeout := c.backend, c.opts.Timeout
	return id, func(ctx context.Context) Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		habit, err := backend.CreateHabit(ctx, req)
		return createResult{ident: id, seq: seq, title: req.Title, habit: habit, err: err}
	}, nil
}

type createResult struct {
	ident Ident
	seq   uint64
	title string
	habit models.Habit
	err   error
}

func (r createResult) apply(c *Coordinator) (Notice, bool) {
	i := c.state.index(r.ident)
	if i < 0 {
		logger.Debug("Dropping create result for vanished entry", "ident", r.ident, "seq", r.seq)
		return Notice{}, false
	}

	if r.err != nil {
		c.state.remove(i)
		logger.Warn("Create habit failed", "title", r.title, "error", r.err)
		return Notice{
			Level:   NoticeError,
			Message: fmt.Sprintf("Couldn't save %q", r.title),
			Err:     r.err,
		}, true
	}

	confirmed := Entry{
		Ident:       Persisted(r.habit.ID),
		Habit:       r.habit,
		Completions: models.CompletionMap{},
	}
	c.resolved[r.ident] = confirmed.Ident
	// A refresh may already have brought the server copy in.
	if c.state.index(confirmed.Ident) >= 0 {
		c.state.remove(i)
		return Notice{}, false
	}
	c.state.entries[i] = confirmed
	return Notice{}, false
}

// ToggleCompletion flips the effective success of (habit, date) and submits
// the new stored value. For a bad habit success is an explicit false, so
// the stored value is the negation of the new success.
func (c *Coordinator) ToggleCompletion(id Ident, date string) (Pending, error) {
	if id.IsLocal() {
		return nil, ErrPending
	}
	if err := validation.Date("date", date); err != nil {
		return nil, err
	}
	i := c.state.index(id)
	if i < 0 {
		return nil, ErrUnknownHabit
	}
	entry := &c.state.entries[i]
	if !entry.Habit.VisibleOn(date) {
		return nil, ErrNotVisible
	}

	newSuccess := !entry.Success(date)
	stored := newSuccess
	if !entry.Habit.IsGood {
		stored = !newSuccess
	}

	prev, hadPrev := entry.Completions[date]
	if entry.Completions == nil {
		entry.Completions = models.CompletionMap{}
	}
	entry.Completions[date] = stored

	key := toggleKey{habitID: id.ID(), date: date}
	seq := c.next()
	c.toggles[key] = seq
	logger.Debug("Optimistic toggle", "habit", id, "date", date, "completed", stored, "seq", seq)

	backend, timeout, title := c.backend, c.opts.Timeout, entry.Habit.Title
	return func(ctx context.Context) Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		completion, err := backend.SetCompletion(ctx, key.habitID, key.date, stored)
		return toggleResult{
			key:        key,
			seq:        seq,
			title:      title,
			prev:       prev,
			hadPrev:    hadPrev,
			completion: completion,
			err:        err,
		}
	}, nil
}

type toggleResult struct {
	key        toggleKey
	seq        uint64
	title      string
	prev       bool
	hadPrev    bool
	completion models.Completion
	err        error
}

func (r toggleResult) apply(c *Coordinator) (Notice, bool) {
	// A later toggle of the same day owns the value now.
	if c.toggles[r.key] != r.seq {
		logger.Debug("Dropping stale toggle result", "habit", r.key.habitID, "date", r.key.date, "seq", r.seq)
		return Notice{}, false
	}
	delete(c.toggles, r.key)

	settled := r.settle()
	i := c.state.index(Persisted(r.key.habitID))
	if i < 0 {
		if _, ok := c.deleting[r.key.habitID]; !ok {
			logger.Debug("Dropping toggle result for deleted habit", "habit", r.key.habitID, "seq", r.seq)
			return Notice{}, false
		}
		c.settled[r.key.habitID] = append(c.settled[r.key.habitID], settled)
	} else {
		settled.applyTo(c.state.entries[i].Completions)
	}

	if r.err != nil {
		logger.Warn("Set completion failed", "habit", r.key.habitID, "date", r.key.date, "error", r.err)
		return Notice{
			Level:   NoticeError,
			Message: fmt.Sprintf("Couldn't update %q for %s", r.title, r.key.date),
			Err:     r.err,
		}, true
	}
	return Notice{}, false
}

// settle is the value the day should hold once r is reconciled: the
// server's answer, or the value from before the toggle when it failed.
func (r toggleResult) settle() settledToggle {
	if r.err != nil {
		return settledToggle{date: r.key.date, value: r.prev, present: r.hadPrev}
	}
	return settledToggle{date: r.key.date, value: r.completion.Completed, present: true}
}

type settledToggle struct {
	date    string
	value   bool
	present bool
}

func (s settledToggle) applyTo(m models.CompletionMap) {
	if s.present {
		m[s.date] = s.value
	} else {
		delete(m, s.date)
	}
}

// DeleteHabit removes the habit right away. If the server refuses, the entry
// is put back where it was, completions included.
func (c *Coordinator) DeleteHabit(id Ident) (Pending, error) {
	if id.IsLocal() {
		return nil, ErrPending
	}
	i := c.state.index(id)
	if i < 0 {
		return nil, ErrUnknownHabit
	}
	removed := c.state.remove(i)
	seq := c.next()
	c.deleting[id.ID()] = seq
	logger.Debug("Optimistic delete", "habit", id, "seq", seq)

	backend, timeout := c.backend, c.opts.Timeout
	return func(ctx context.Context) Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := backend.DeleteHabit(ctx, id.ID())
		return deleteResult{entry: removed, index: i, seq: seq, err: err}
	}, nil
}

type deleteResult struct {
	entry Entry
	index int
	seq   uint64
	err   error
}

func (r deleteResult) apply(c *Coordinator) (Notice, bool) {
	habitID := r.entry.Ident.ID()
	if c.deleting[habitID] == r.seq {
		delete(c.deleting, habitID)
	}
	settled := c.settled[habitID]
	delete(c.settled, habitID)

	if r.err == nil || c.opts.IsNotFound(r.err) {
		for key := range c.toggles {
			if key.habitID == habitID {
				delete(c.toggles, key)
			}
		}
		return Notice{Level: NoticeInfo, Message: fmt.Sprintf("Deleted %q", r.entry.Habit.Title)}, true
	}

	logger.Warn("Delete habit failed", "habit", habitID, "error", r.err)
	if c.state.index(r.entry.Ident) < 0 {
		restored := r.entry.clone()
		for _, s := range settled {
			s.applyTo(restored.Completions)
		}
		c.state.insert(r.index, restored)
	}
	return Notice{
		Level:   NoticeError,
		Message: fmt.Sprintf("Couldn't delete %q; it has been restored", r.entry.Habit.Title),
		Err:     r.err,
	}, true
}
