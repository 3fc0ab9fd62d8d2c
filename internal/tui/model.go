package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/greaterodd/odd-trackr/internal/cache"
	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/optimistic"
	"github.com/greaterodd/odd-trackr/internal/streak"
	"github.com/greaterodd/odd-trackr/internal/tui/components/habits"
	"github.com/greaterodd/odd-trackr/internal/tui/components/streaks"
)

// Source is the server the TUI reads from and writes through.
// *client.Client satisfies it.
type Source interface {
	optimistic.Backend
	Bootstrap(ctx context.Context) ([]models.HabitWithCompletions, error)
}

type Options struct {
	Source Source
	// Cache seeds the first frame before the server answers. Optional.
	Cache  *cache.Cache
	UserID string
	// Timeout bounds each server call.
	Timeout    time.Duration
	Now        func() time.Time
	IsNotFound func(error) bool
}

type HabitFormModel struct {
	Title       string
	Description string
	IsGood      bool
	StartDate   string
}

type ConfirmationFormModel struct {
	Confirmed bool
}

type Model struct {
	source  Source
	cache   *cache.Cache
	userID  string
	timeout time.Duration
	now     func() time.Time

	coord *optimistic.Coordinator
	calc  *streak.Calculator

	state         constants.SessionState
	previousState constants.SessionState
	keys          KeyMap
	help          help.Model
	spinner       spinner.Model
	habitsModel   habits.Model
	streaksModel  streaks.Model

	form             *huh.Form
	habitForm        *HabitFormModel
	confirmationForm *ConfirmationFormModel
	pendingAction    func() tea.Cmd

	date     string
	loading  bool
	status   string
	statusID int
	isError  bool
	quitting bool
	width    int
	height   int
}

func New(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultRequestTimeout
	}

	coord := optimistic.New(optimistic.NewState(), opts.Source, optimistic.Options{
		Timeout:    opts.Timeout,
		Now:        opts.Now,
		IsNotFound: opts.IsNotFound,
	})

	m := Model{
		source:       opts.Source,
		cache:        opts.Cache,
		userID:       opts.UserID,
		timeout:      opts.Timeout,
		now:          opts.Now,
		coord:        coord,
		calc:         streak.New(streak.WithClock(opts.Now)),
		state:        constants.StateHabits,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		habitsModel:  habits.New(0, 0),
		streaksModel: streaks.New(0, 0),
		date:         opts.Now().Format(constants.DateFormat),
		loading:      true,
	}

	if m.cache != nil && m.userID != "" {
		if items, savedAt, err := m.cache.Load(m.userID); err == nil {
			logger.Debug("Seeded habits from cache", "count", len(items), "saved_at", savedAt)
			coord.Replace(items)
		}
	}
	m.refreshViews()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bootstrap())
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	if m.state == constants.StateHabits {
		keys = append(keys, m.keys.PrevDay, m.keys.NextDay, m.keys.Toggle, m.keys.Add, m.keys.Delete)
	}
	return append(keys, m.keys.Refresh)
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help, m.keys.Refresh}
	navigation := []key.Binding{m.keys.Up, m.keys.Down}

	var actions []key.Binding
	if m.state == constants.StateHabits {
		navigation = append(navigation, m.keys.PrevDay, m.keys.NextDay, m.keys.Today)
		actions = []key.Binding{m.keys.Toggle, m.keys.Add, m.keys.Delete}
	}
	return [][]key.Binding{global, navigation, actions}
}

func (m Model) today() string {
	return m.now().Format(constants.DateFormat)
}

// refreshViews re-renders both tabs from coordinator state.
func (m *Model) refreshViews() {
	st := m.coord.State()
	m.habitsModel.SetEntries(st.Visible(m.date), m.date)

	entries := st.Entries()
	items := make([]models.HabitWithCompletions, 0, len(entries))
	for _, e := range entries {
		items = append(items, models.HabitWithCompletions{Habit: e.Habit, Completions: e.Records()})
	}
	rows, err := m.calc.ForHabits(items)
	if err != nil {
		logger.Warn("Failed to compute streaks", "error", err)
		return
	}
	m.streaksModel.SetRows(rows)
}

// saveCache snapshots confirmed habits once nothing is in flight, so the
// cache never holds an unconfirmed value.
func (m *Model) saveCache() {
	if m.cache == nil || m.userID == "" || m.coord.InFlight() > 0 {
		return
	}
	var items []models.HabitWithCompletions
	for _, e := range m.coord.State().Entries() {
		if e.Pending() {
			return
		}
		items = append(items, models.HabitWithCompletions{Habit: e.Habit, Completions: e.Records()})
	}
	if err := m.cache.Save(m.userID, items); err != nil {
		logger.Warn("Failed to write habit cache", "error", err)
	}
}
