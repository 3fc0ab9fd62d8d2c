package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
	"github.com/greaterodd/odd-trackr/internal/storage/storagetest"
)

func setupTestSQLiteStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to initialize test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProvider(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return setupTestSQLiteStore(t)
	})
}

func TestLoadBeforeInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load(context.Background())
	if !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("Load() error = %v, want ErrNotInitialized", err)
	}
}

func TestLoadAfterInit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trackr.db")

	first := NewStore(path)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := first.CreateUser(ctx, storageUser("reopen@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	first.Close()

	second := NewStore(path)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	defer second.Close()

	if err := second.Ping(ctx); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
	if _, err := second.GetUserByEmail(ctx, "reopen@example.com"); err != nil {
		t.Errorf("user not persisted: %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	store := setupTestSQLiteStore(t)
	var enabled int
	if err := store.GetDB().QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("PRAGMA query failed: %v", err)
	}
	if enabled != 1 {
		t.Errorf("foreign_keys = %d, want 1", enabled)
	}
}

func storageUser(email string) models.User {
	return models.User{Email: email}
}
