package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greaterodd/odd-trackr/internal/api"
	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/keyring"
	"github.com/greaterodd/odd-trackr/internal/pidfile"
	"github.com/greaterodd/odd-trackr/internal/storage"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

type DoctorCmd struct{}

type check struct {
	name string
	fn   func(ctx context.Context, c *cli.Context) error
	// warnOnly checks print a warning instead of failing the run.
	warnOnly bool
	// needsDB checks are skipped when the database is not reachable.
	needsDB bool
	opensDB bool
}

var checks = []check{
	{name: "Config valid", fn: checkConfig},
	{name: "Database reachable", fn: checkDBReachable, opensDB: true},
	{name: "Schema version", fn: checkSchemaVersion, needsDB: true},
	{name: "Migrations complete", fn: checkMigrationsComplete, needsDB: true},
	{name: "Data validation", fn: checkValidation, needsDB: true},
	{name: "Server running", fn: checkServerRunning, warnOnly: true},
	{name: "API reachable", fn: checkAPIReachable, warnOnly: true},
	{name: "OS keyring", fn: checkKeyring, warnOnly: true},
	{name: "Clock/timezone", fn: checkClockTimezone},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	bg := context.Background()
	hasError := false
	dbReachable := false

	for _, ch := range checks {
		if ch.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", ch.name)
			continue
		}

		err := ch.fn(bg, ctx)
		var skip skipError
		switch {
		case errors.As(err, &skip):
			fmt.Printf("⊘ %s: SKIPPED (%s)\n", ch.name, skip.reason)
		case err != nil && ch.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", ch.name)
			fmt.Printf("   %v\n", err)
		case err != nil:
			fmt.Printf("❌ %s: FAIL\n", ch.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		default:
			fmt.Printf("✓ %s: OK\n", ch.name)
			if ch.opensDB {
				dbReachable = true
			}
		}
	}

	if dbReachable {
		_ = ctx.Store.Close()
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

// skipError marks a check that could not run in this setup.
type skipError struct{ reason string }

func (s skipError) Error() string { return "skipped: " + s.reason }

func skipped(reason string) error { return skipError{reason: reason} }

func checkConfig(_ context.Context, ctx *cli.Context) error {
	if ctx.Config == nil {
		return errors.New("no configuration loaded")
	}
	return ctx.Config.Validate()
}

func checkDBReachable(bg context.Context, ctx *cli.Context) error {
	if err := ctx.LoadStore(bg); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if err := ctx.Store.Ping(bg); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(bg context.Context, ctx *cli.Context) error {
	runner, err := ctx.Store.Migrations()
	if err != nil {
		return err
	}
	return runner.ValidateVersion(bg)
}

func checkMigrationsComplete(bg context.Context, ctx *cli.Context) error {
	runner, err := ctx.Store.Migrations()
	if err != nil {
		return err
	}
	pending, err := runner.Pending(bg)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("migrations incomplete: %d pending, run 'trackr migrate'", pending)
	}
	return nil
}

// checkValidation inspects the habits of the user owning the configured
// API token, when that user lives in this database.
func checkValidation(bg context.Context, ctx *cli.Context) error {
	if ctx.Config == nil || ctx.Config.APIToken == "" {
		return skipped("no API token configured")
	}
	user, err := ctx.Store.GetUserByTokenHash(bg, api.HashToken(ctx.Config.APIToken))
	if errors.Is(err, storage.ErrNotFound) {
		return skipped("token user is not in this database")
	}
	if err != nil {
		return fmt.Errorf("failed to look up token user: %w", err)
	}

	items, err := storage.HabitsWithCompletions(bg, ctx.Store, user.ID)
	if err != nil {
		return fmt.Errorf("failed to get habits: %w", err)
	}
	result := validation.New().ValidateHabits(items)
	if result.HasConflicts() {
		return errors.New(result.FormatReport())
	}
	return nil
}

func checkServerRunning(_ context.Context, ctx *cli.Context) error {
	if ctx.Config == nil {
		return skipped("no configuration loaded")
	}
	info, err := pidfile.Running(ctx.Config.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("   Serving on %s (pid %d)\n", info.Addr, info.PID)
	return nil
}

func checkAPIReachable(bg context.Context, ctx *cli.Context) error {
	if ctx.Client == nil {
		return skipped("no API client configured")
	}
	if err := ctx.Client.Health(bg); err != nil {
		return fmt.Errorf("%s: %w", ctx.Config.APIURL, err)
	}
	return nil
}

func checkKeyring(context.Context, *cli.Context) error {
	if !keyring.IsAvailable() {
		return errors.New("OS keyring is not available; use environment variables for secrets")
	}
	return nil
}

func checkClockTimezone(_ context.Context, ctx *cli.Context) error {
	now := ctx.Clock()()

	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	if _, offset := now.Zone(); offset == 0 && now.Location() == time.UTC {
		fmt.Printf("   Note: timezone is UTC\n")
	}
	return nil
}
