package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/optimistic"
	"github.com/greaterodd/odd-trackr/internal/tui/components/habits"
	"github.com/greaterodd/odd-trackr/internal/utils"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

type bootstrapMsg struct {
	items []models.HabitWithCompletions
	err   error
}

// resultMsg carries a finished Pending back to the update loop.
type resultMsg struct {
	result optimistic.Result
}

type clearStatusMsg struct {
	id int
}

type errMsg struct {
	err error
}

const tabCount = 2

func (m Model) bootstrap() tea.Cmd {
	source, timeout := m.source, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		items, err := source.Bootstrap(ctx)
		return bootstrapMsg{items: items, err: err}
	}
}

// run executes the asynchronous half of a mutation off the update loop.
func run(p optimistic.Pending) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{result: p(context.Background())}
	}
}

// setStatus shows a transient notice that clears itself after StatusDuration.
func (m *Model) setStatus(msg string, isError bool) tea.Cmd {
	m.statusID++
	m.status = msg
	m.isError = isError
	id := m.statusID
	return tea.Tick(constants.StatusDuration, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		m.habitsModel.SetSize(msg.Width-h, msg.Height-v-5)
		m.streaksModel.SetSize(msg.Width-h, msg.Height-v-5)
		return m, nil

	case bootstrapMsg:
		m.loading = false
		if msg.err != nil {
			logger.Warn("Failed to refresh habits", "error", msg.err)
			return m, m.setStatus("Could not reach server: "+msg.err.Error(), true)
		}
		m.coord.Replace(msg.items)
		m.refreshViews()
		m.saveCache()
		return m, nil

	case resultMsg:
		return m, m.handleResult(msg.result)

	case errMsg:
		return m, m.setStatus(describe(msg.err), true)

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
			m.isError = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case constants.ConfirmationMsg:
		m.confirmationForm = &ConfirmationFormModel{}
		m.pendingAction = msg.Action
		m.form = NewConfirmationForm(msg.Message, m.confirmationForm)
		m.previousState = m.state
		m.state = constants.StateConfirmDelete
		return m, m.form.Init()
	}

	switch m.state {
	case constants.StateAddHabit:
		return m, m.updateAddHabit(msg)
	case constants.StateConfirmDelete:
		return m, m.updateConfirmation(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.saveCache()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.bootstrap())
		}

		if m.state == constants.StateHabits {
			switch {
			case key.Matches(msg, m.keys.PrevDay):
				return m, m.shiftDate(-1)
			case key.Matches(msg, m.keys.NextDay):
				return m, m.shiftDate(1)
			case key.Matches(msg, m.keys.Today):
				m.date = m.today()
				m.refreshViews()
				return m, nil
			}
		}
	}

	if handled, cmd := m.handleHabitMessages(msg); handled {
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.state {
	case constants.StateHabits:
		m.habitsModel, cmd = m.habitsModel.Update(msg)
	case constants.StateStreaks:
		m.streaksModel, cmd = m.streaksModel.Update(msg)
	}
	return m, cmd
}

// shiftDate moves the selected day, never past today.
func (m *Model) shiftDate(n int) tea.Cmd {
	date, err := utils.ShiftDate(m.date, n)
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	if date > m.today() {
		return nil
	}
	m.date = date
	m.refreshViews()
	return nil
}

func (m *Model) handleResult(r optimistic.Result) tea.Cmd {
	selected, hasSelection := m.habitsModel.Selected()

	notice, ok := m.coord.Apply(r)
	m.refreshViews()
	if hasSelection {
		m.habitsModel.Select(m.coord.Resolve(selected.Ident))
	}
	m.saveCache()

	if !ok {
		return nil
	}
	if notice.Level == optimistic.NoticeError {
		logger.Warn("Mutation failed", "message", notice.Message, "error", notice.Err)
		return m.setStatus(notice.Message, true)
	}
	return m.setStatus(notice.Message, false)
}

func (m *Model) handleHabitMessages(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case habits.AddHabitMsg:
		m.habitForm = &HabitFormModel{IsGood: true, StartDate: m.date}
		m.form = NewHabitForm(m.habitForm)
		m.state = constants.StateAddHabit
		return true, m.form.Init()

	case habits.ToggleHabitMsg:
		pending, err := m.coord.ToggleCompletion(msg.Ident, m.date)
		if err != nil {
			return true, m.setStatus(describe(err), true)
		}
		m.refreshViews()
		return true, run(pending)

	case habits.DeleteHabitMsg:
		if msg.Entry.Pending() {
			return true, m.setStatus(describe(optimistic.ErrPending), true)
		}
		coord, id := m.coord, msg.Entry.Ident
		prompt := fmt.Sprintf("Delete %q and its %d record(s)?", msg.Entry.Habit.Title, len(msg.Entry.Completions))
		return true, func() tea.Msg {
			return constants.ConfirmationMsg{
				Message: prompt,
				Action: func() tea.Cmd {
					pending, err := coord.DeleteHabit(id)
					if err != nil {
						return func() tea.Msg { return errMsg{err: err} }
					}
					return run(pending)
				},
			}
		}
	}
	return false, nil
}

func (m *Model) updateAddHabit(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = constants.StateHabits
		return nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		m.state = constants.StateHabits
		cmds = append(cmds, m.createHabit(*m.habitForm))
	case huh.StateAborted:
		m.state = constants.StateHabits
	}
	return tea.Batch(cmds...)
}

func (m *Model) createHabit(f HabitFormModel) tea.Cmd {
	isGood := f.IsGood
	req := validation.CreateHabitRequest{
		Title:     f.Title,
		IsGood:    &isGood,
		StartDate: strings.TrimSpace(f.StartDate),
	}
	if d := strings.TrimSpace(f.Description); d != "" {
		req.Description = &d
	}

	id, pending, err := m.coord.CreateHabit(req)
	if err != nil {
		return m.setStatus(describe(err), true)
	}
	// Jump to the start day if the new habit would be hidden.
	if req.StartDate > m.date {
		m.date = req.StartDate
	}
	m.refreshViews()
	m.habitsModel.Select(id)
	return run(pending)
}

func (m *Model) updateConfirmation(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.pendingAction = nil
		m.state = m.previousState
		return nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		if m.confirmationForm.Confirmed && m.pendingAction != nil {
			cmds = append(cmds, m.pendingAction())
			m.refreshViews()
		}
		m.pendingAction = nil
		m.state = m.previousState
	case huh.StateAborted:
		m.pendingAction = nil
		m.state = m.previousState
	}
	return tea.Batch(cmds...)
}

// describe turns a rejected mutation into a short status line.
func describe(err error) string {
	var reqErr *validation.RequestError
	switch {
	case errors.As(err, &reqErr):
		return "Invalid habit: " + reqErr.Error()
	case errors.Is(err, optimistic.ErrPending):
		return "That habit is still being saved"
	case errors.Is(err, optimistic.ErrNotVisible):
		return "That habit has not started on this day"
	}
	return err.Error()
}
