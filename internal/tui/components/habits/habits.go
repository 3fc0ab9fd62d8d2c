package habits

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/greaterodd/odd-trackr/internal/optimistic"
)

type AddHabitMsg struct{}

type ToggleHabitMsg struct {
	Ident optimistic.Ident
}

type DeleteHabitMsg struct {
	Entry optimistic.Entry
}

type Item struct {
	Entry optimistic.Entry
	Date  string
}

func (i Item) Title() string {
	title := i.Entry.Habit.Title
	switch {
	case i.Entry.Pending():
		return "… " + title
	case i.Entry.Success(i.Date):
		return "✓ " + title
	}
	if _, recorded := i.Entry.Completions[i.Date]; recorded {
		return "✗ " + title
	}
	return "○ " + title
}

func (i Item) Description() string {
	if i.Entry.Pending() {
		return "saving..."
	}
	kind := "build"
	if !i.Entry.Habit.IsGood {
		kind = "avoid"
	}
	desc := fmt.Sprintf("%s | since %s", kind, i.Entry.Habit.StartDate)
	if i.Entry.Habit.Description != nil && *i.Entry.Habit.Description != "" {
		desc += " | " + *i.Entry.Habit.Description
	}
	return desc
}

func (i Item) FilterValue() string { return i.Entry.Habit.Title }

type KeyMap struct {
	Add    key.Binding
	Toggle key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "toggle"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
	date string
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Delete}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Delete}
	}

	return Model{list: l, keys: keys}
}

// SetEntries replaces the rows shown for date, keeping the cursor on the
// same habit when it is still listed.
func (m *Model) SetEntries(entries []optimistic.Entry, date string) {
	selected, hasSelection := m.Selected()

	m.date = date
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = Item{Entry: e, Date: date}
	}
	m.list.SetItems(items)

	if hasSelection {
		m.Select(selected.Ident)
	}
}

// Select moves the cursor to the habit with the given ident, if listed.
func (m *Model) Select(id optimistic.Ident) bool {
	for i, it := range m.list.Items() {
		if it.(Item).Entry.Ident == id {
			m.list.Select(i)
			return true
		}
	}
	return false
}

func (m Model) Selected() (optimistic.Entry, bool) {
	if i, ok := m.list.SelectedItem().(Item); ok {
		return i.Entry, true
	}
	return optimistic.Entry{}, false
}

func (m Model) Date() string { return m.date }

func (m Model) Len() int { return len(m.list.Items()) }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if e, ok := m.Selected(); ok {
				return m, func() tea.Msg { return ToggleHabitMsg{Ident: e.Ident} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if e, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeleteHabitMsg{Entry: e} }
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No habits on this day.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
