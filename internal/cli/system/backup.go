package system

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/greaterodd/odd-trackr/internal/backup"
	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/pidfile"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available backups."`
	Restore BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
}

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	dbPath, ok := ctx.SQLitePath()
	if !ok {
		return nil, errors.New("backups only apply to SQLite databases; use pg_dump for PostgreSQL")
	}
	return backup.NewManager(dbPath), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	info, err := mgr.Create(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("✓ Backup created: %s (%s)\n", info.Path, formatSize(info.Size))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups found.")
		return nil
	}

	fmt.Printf("Backups in %s:\n\n", mgr.Dir())
	for _, b := range backups {
		fmt.Printf("  %s  %-32s %8s\n", b.Timestamp.Format("2006-01-02 15:04:05"), filepath.Base(b.Path), formatSize(b.Size))
	}
	return nil
}

type BackupRestoreCmd struct {
	File string `arg:"" type:"path" help:"Backup file to restore (path or name from 'trackr backup list')."`
	Yes  bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	if info, err := pidfile.Running(ctx.Config.Dir); err == nil {
		return fmt.Errorf("trackr serve is running (pid %d); stop it before restoring", info.PID)
	}

	path := c.File
	if filepath.Dir(path) == "." {
		path = filepath.Join(mgr.Dir(), path)
	}
	if !cli.Confirm(fmt.Sprintf("Replace %s with %s?", ctx.Store.GetConfigPath(), filepath.Base(path)), c.Yes) {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	previous, err := mgr.Restore(context.Background(), path)
	if err != nil {
		return err
	}
	if previous.Path != "" {
		fmt.Printf("Saved the replaced database as: %s\n", filepath.Base(previous.Path))
	}
	fmt.Printf("✓ Restored database from %s\n", filepath.Base(path))
	return nil
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
