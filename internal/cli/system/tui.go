package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	if ctx.Client == nil || cfg == nil || cfg.APIToken == "" {
		return cli.ErrNoToken
	}

	// The alt screen owns stderr, so logs go to the file only.
	level := cfg.LogLevel
	if ctx.Debug {
		level = "debug"
	}
	if err := logger.Init(logger.Config{ConfigDir: cfg.Dir, Level: level}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	user, err := ctx.Client.Me(context.Background())
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", cfg.APIURL, err)
	}

	model := tui.New(tui.Options{
		Source:     ctx.Client,
		Cache:      ctx.Cache,
		UserID:     user.ID,
		Timeout:    cfg.Timeout,
		Now:        ctx.Clock(),
		IsNotFound: cli.IsNotFound,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited: %w", err)
	}
	return nil
}
