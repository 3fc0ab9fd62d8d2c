package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/greaterodd/odd-trackr/internal/cache"
	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/cli/habits"
	"github.com/greaterodd/odd-trackr/internal/cli/system"
	"github.com/greaterodd/odd-trackr/internal/client"
	"github.com/greaterodd/odd-trackr/internal/config"
	"github.com/greaterodd/odd-trackr/internal/constants"
	cerrors "github.com/greaterodd/odd-trackr/internal/errors"
	"github.com/greaterodd/odd-trackr/internal/keyring"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/storage"
	"github.com/greaterodd/odd-trackr/internal/storage/postgres"
	"github.com/greaterodd/odd-trackr/internal/storage/sqlite"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string        `help:"Config file path." type:"path" default:"${config_file}"`
	DB      string        `name:"db" help:"SQLite path or PostgreSQL connection string for the server. Credentials must NOT be embedded; use the OS keyring, .pgpass or PGPASSWORD." env:"TRACKR_DB"`
	APIURL  string        `name:"api-url" help:"Server URL for client commands." env:"TRACKR_API_URL"`
	Timeout time.Duration `help:"Request timeout for client commands."`
	Debug   bool          `help:"Enable debug logging."`

	Init    system.InitCmd    `cmd:"" help:"Initialize trackr storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Serve   system.ServeCmd   `cmd:"" help:"Run the trackr HTTP API server."`
	Tui     system.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Backup  system.BackupCmd  `cmd:"" help:"Manage SQLite database backups."`
	Keyring system.KeyringCmd `cmd:"" help:"Manage secrets in the OS keyring."`
	User    system.UserCmd    `cmd:"" help:"Manage server users and API tokens."`
	Habit   habits.HabitCmd   `cmd:"" help:"Manage habits and daily records."`
	Streaks habits.StreaksCmd `cmd:"" help:"Show current and longest streaks."`
	Today   habits.TodayCmd   `cmd:"" help:"Show today's habits."`
	Import  habits.ImportCmd  `cmd:"" help:"Import habits with completions from JSON."`
	Export  habits.ExportCmd  `cmd:"" help:"Export habits with completions as JSON."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with streaks and offline-friendly sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_file": constants.DefaultConfigFile,
		},
	)

	appCtx, err := setup()
	if err != nil {
		cerrors.Print(os.Stderr, err)
		os.Exit(1)
	}

	if err := ctx.Run(appCtx); err != nil {
		logger.Error("Command failed", "command", ctx.Command(), "error", err)
		cerrors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*cli.Context, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	if CLI.APIURL != "" {
		cfg.APIURL = CLI.APIURL
	}
	if CLI.Timeout > 0 {
		cfg.Timeout = CLI.Timeout
	}
	if CLI.DB != "" {
		cfg.DB = config.ExpandHome(CLI.DB)
	}
	if cfg.APIToken == "" {
		if token, err := keyring.GetAPIToken(); err == nil {
			cfg.APIToken = token
		}
	}

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: cfg.Dir,
		Level:     cfg.LogLevel,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	return &cli.Context{
		Config:     &cfg,
		ConfigPath: config.ExpandHome(CLI.Config),
		Debug:      CLI.Debug,
		Store:      store,
		Client: client.New(client.Config{
			BaseURL: cfg.APIURL,
			Token:   cfg.APIToken,
			Timeout: cfg.Timeout,
		}),
		Cache: cache.New(cfg.Dir, cfg.CacheTTL),
	}, nil
}

// openStore picks the backend from the db setting. With no explicit db, a
// connection string saved in the keyring wins over the default SQLite file.
// The keyring value is never copied into cfg, so it cannot be saved to disk.
func openStore(cfg config.Config) (storage.Provider, error) {
	dsn := cfg.DB
	fromKeyring := false
	if CLI.DB == "" && cfg.DB == config.Default().DB {
		if connStr, err := keyring.GetConnectionString(); err == nil {
			dsn = connStr
			fromKeyring = true
		}
	}

	if !postgres.IsConnString(dsn) {
		return sqlite.NewStore(dsn), nil
	}
	// The keyring is the one place a password may live.
	err := postgres.ValidateConnString(dsn)
	if err != nil && !(fromKeyring && errors.Is(err, postgres.ErrEmbeddedCredentials)) {
		return nil, err
	}
	return postgres.New(dsn), nil
}
