package system

import (
	"context"
	"fmt"

	"github.com/greaterodd/odd-trackr/internal/cli"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if err := ctx.LoadStore(bg); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	defer ctx.Store.Close()

	runner, err := ctx.Store.Migrations()
	if err != nil {
		return err
	}

	count, err := runner.ApplyMigrations(bg, func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
