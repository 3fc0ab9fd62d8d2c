package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/utils"
)

// NewHabitForm creates a new form for adding habits
func NewHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&fm.Title).
				Validate(func(s string) error {
					n := utf8.RuneCountInString(strings.TrimSpace(s))
					if n < constants.MinTitleLength || n > constants.MaxTitleLength {
						return fmt.Errorf("title must be %d-%d characters", constants.MinTitleLength, constants.MaxTitleLength)
					}
					return nil
				}),
			huh.NewInput().
				Title("Description (optional)").
				Value(&fm.Description),
			huh.NewSelect[bool]().
				Title("Kind").
				Options(
					huh.NewOption("Build it (good habit)", true),
					huh.NewOption("Avoid it (bad habit)", false),
				).
				Value(&fm.IsGood),
			huh.NewInput().
				Title("Start date (YYYY-MM-DD)").
				Value(&fm.StartDate).
				Validate(func(s string) error {
					if !utils.ValidateDate(strings.TrimSpace(s)) {
						return fmt.Errorf("invalid date format")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewConfirmationForm creates a yes/no form for destructive actions
func NewConfirmationForm(message string, fm *ConfirmationFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(message).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&fm.Confirmed),
		),
	).WithTheme(huh.ThemeDracula())
}
