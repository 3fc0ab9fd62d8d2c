package streaks

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/greaterodd/odd-trackr/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(32)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Width(7)

	countStyle = lipgloss.NewStyle().
			Width(9).
			Align(lipgloss.Right)

	hotStyle = countStyle.
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

type Model struct {
	viewport viewport.Model
	rows     []models.HabitWithStreaks
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m *Model) SetRows(rows []models.HabitWithStreaks) {
	m.rows = rows
	m.viewport.SetContent(m.render())
}

func (m Model) Rows() []models.HabitWithStreaks { return m.rows }

func (m Model) render() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(
		titleStyle.Render("Habit") + kindStyle.Render("Kind") +
			countStyle.Render("Current") + countStyle.Render("Longest"),
	))
	b.WriteString("\n")

	for _, r := range m.rows {
		kind := "good"
		if !r.IsGood {
			kind = "bad"
		}
		current := countStyle.Render(fmt.Sprintf("%d", r.CurrentStreak))
		if r.CurrentStreak > 0 && r.CurrentStreak == r.LongestStreak {
			current = hotStyle.Render(fmt.Sprintf("%d", r.CurrentStreak))
		}
		b.WriteString(titleStyle.Render(r.Title))
		b.WriteString(kindStyle.Render(kind))
		b.WriteString(current)
		b.WriteString(countStyle.Render(fmt.Sprintf("%d", r.LongestStreak)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.rows) == 0 {
		return "No habits yet. Add one on the Habits tab."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}
