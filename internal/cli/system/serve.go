package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/greaterodd/odd-trackr/internal/api"
	"github.com/greaterodd/odd-trackr/internal/backup"
	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/pidfile"
	"github.com/greaterodd/odd-trackr/internal/telemetry"
)

type ServeCmd struct {
	Addr    string `help:"Listen address (overrides config)."`
	Tracing bool   `help:"Print OpenTelemetry spans to stdout."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	addr := cfg.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	if err := logger.Init(logger.Config{
		Debug:     ctx.Debug,
		ConfigDir: cfg.Dir,
		Level:     cfg.LogLevel,
		Console:   true,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if !ctx.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	pid, err := pidfile.Acquire(cfg.Dir, addr)
	if err != nil {
		return err
	}
	defer func() {
		if err := pid.Release(); err != nil {
			logger.Warn("Failed to remove pid file", "error", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(sigCtx, telemetry.Config{Enabled: c.Tracing || cfg.Tracing})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	if err := ctx.LoadStore(sigCtx); err != nil {
		return err
	}
	defer ctx.Store.Close()
	autoBackup(sigCtx, ctx)

	srv := api.New(ctx.Store, api.Options{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	fmt.Printf("trackr API listening on http://%s (Ctrl+C to stop)\n", addr)
	return srv.Run(sigCtx, addr)
}

// autoBackup snapshots a SQLite database on startup. Failures only warn.
func autoBackup(bg context.Context, ctx *cli.Context) {
	dbPath, ok := ctx.SQLitePath()
	if !ok {
		return
	}
	if _, err := backup.NewManager(dbPath).Create(bg); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}
