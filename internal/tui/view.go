package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/greaterodd/odd-trackr/internal/constants"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateHabits:
		content = lipgloss.JoinVertical(lipgloss.Left, m.viewDate(), docStyle.Render(m.habitsModel.View()))
	case constants.StateStreaks:
		content = docStyle.Render(m.streaksModel.View())
	case constants.StateAddHabit, constants.StateConfirmDelete:
		content = docStyle.Render(m.form.View())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Habits", "Streaks"} {
		if m.activeTab() == constants.SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// activeTab is the tab a form or dialog was opened from.
func (m Model) activeTab() constants.SessionState {
	switch m.state {
	case constants.StateAddHabit:
		return constants.StateHabits
	case constants.StateConfirmDelete:
		return m.previousState
	}
	return m.state
}

func (m Model) viewDate() string {
	label := m.date
	if m.date == m.today() {
		label += " (today)"
	}
	return dateStyle.Render("‹ "+label+" ›") + mutedStyle.Render(fmt.Sprintf("%d habit(s)", m.habitsModel.Len()))
}

func (m Model) viewStatus() string {
	switch {
	case m.status != "" && m.isError:
		return dangerStyle.Render("⚠ " + m.status)
	case m.status != "":
		return infoStyle.Render(m.status)
	case m.loading:
		return m.spinner.View() + mutedStyle.Render(" syncing...")
	case m.coord.InFlight() > 0:
		return m.spinner.View() + mutedStyle.Render(fmt.Sprintf(" saving %d change(s)...", m.coord.InFlight()))
	}
	return ""
}
