package system

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/greaterodd/odd-trackr/internal/backup"
	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/config"
	"github.com/greaterodd/odd-trackr/internal/storage/postgres"
)

func TestBackupCreateListRestore(t *testing.T) {
	ctx, dbPath := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}

	backups, err := backup.NewManager(dbPath).List()
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected one backup, got %v (%v)", backups, err)
	}

	// A bare file name resolves inside the backup directory.
	restore := &BackupRestoreCmd{File: filepath.Base(backups[0].Path), Yes: true}
	if err := restore.Run(ctx); err != nil {
		t.Fatalf("backup restore failed: %v", err)
	}
	if err := ctx.LoadStore(t.Context()); err != nil {
		t.Errorf("restored database does not load: %v", err)
	}
}

func TestBackupRejectsPostgres(t *testing.T) {
	cfg := config.Default()
	ctx := &cli.Context{Config: &cfg, Store: postgres.New("postgres://trackr@localhost/trackr")}

	err := (&BackupCreateCmd{}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "pg_dump") {
		t.Errorf("expected a pg_dump hint, got %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
