package system

import (
	"context"
	"fmt"
	"os"

	"github.com/greaterodd/odd-trackr/internal/cli"
)

type InitCmd struct {
	Force bool `help:"Delete an existing SQLite database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	if c.Force {
		dbPath, ok := ctx.SQLitePath()
		if !ok {
			return fmt.Errorf("--force only applies to SQLite databases")
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(bg); err != nil {
		return err
	}
	fmt.Printf("Initialized trackr storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.Config != nil && ctx.ConfigPath != "" {
		if _, err := os.Stat(ctx.ConfigPath); os.IsNotExist(err) {
			if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			fmt.Printf("Wrote default config to: %s\n", ctx.ConfigPath)
		}
	}
	return nil
}
