package system

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/greaterodd/odd-trackr/internal/api"
	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/config"
	"github.com/greaterodd/odd-trackr/internal/keyring"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
	"github.com/greaterodd/odd-trackr/internal/storage/sqlite"
)

func setupTestContext(t *testing.T) (*cli.Context, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "trackr.db")
	store := sqlite.NewStore(dbPath)

	cfg := config.Default()
	cfg.DB = dbPath
	cfg.Dir = dir

	ctx := &cli.Context{
		Config:     &cfg,
		ConfigPath: filepath.Join(dir, "config.yaml"),
		Store:      store,
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return ctx, dbPath
}

func TestInitCmd_Success(t *testing.T) {
	ctx, dbPath := setupTestContext(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}
	if _, err := os.Stat(ctx.ConfigPath); os.IsNotExist(err) {
		t.Errorf("default config was not written to %s", ctx.ConfigPath)
	}
	loaded, err := config.Load(ctx.ConfigPath)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if loaded.APIToken != "" {
		t.Error("API token must never be written to the config file")
	}
}

func TestInitCmd_Idempotent(t *testing.T) {
	ctx, _ := setupTestContext(t)

	cmd := &InitCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("second init failed (should be idempotent): %v", err)
	}
}

func TestInitCmd_ForceDeletesExisting(t *testing.T) {
	ctx, _ := setupTestContext(t)
	bg := context.Background()

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("initial init failed: %v", err)
	}
	if _, err := ctx.Store.CreateUser(bg, models.User{Email: "ada@example.com"}); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("force init failed: %v", err)
	}
	if _, err := ctx.Store.GetUserByEmail(bg, "ada@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("force init should start from an empty database, got %v", err)
	}
}

func TestMigrateCmd(t *testing.T) {
	ctx, _ := setupTestContext(t)

	if err := (&MigrateCmd{}).Run(ctx); !errors.Is(err, storage.ErrNotInitialized) {
		t.Errorf("migrate before init should report not initialized, got %v", err)
	}

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Errorf("migrate on an up-to-date database failed: %v", err)
	}
}

func TestDoctorCmd_HealthyDB(t *testing.T) {
	gokeyring.MockInit()
	ctx, _ := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	// No server is running and no client is configured; both only warn.
	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Errorf("doctor command failed on healthy database: %v", err)
	}
}

func TestDoctorCmd_NotInitialized(t *testing.T) {
	ctx, _ := setupTestContext(t)

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Error("doctor should fail when the database does not exist")
	}
}

func TestDoctorCmd_BrokenSchema(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	db := ctx.Store.(*sqlite.Store).GetDB()
	if _, err := db.Exec("UPDATE schema_version SET version = 999"); err != nil {
		t.Fatalf("failed to corrupt schema version: %v", err)
	}
	if err := ctx.Store.Close(); err != nil {
		t.Fatal(err)
	}

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Error("doctor should fail on a newer schema version")
	}
}

func TestDoctorCmd_DataValidation(t *testing.T) {
	ctx, _ := setupTestContext(t)
	bg := context.Background()
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	token := "trk_doctor"
	ctx.Config.APIToken = token
	user, err := ctx.Store.CreateUser(bg, models.User{Email: "ada@example.com", TokenHash: api.HashToken(token)})
	if err != nil {
		t.Fatal(err)
	}
	h, err := ctx.Store.CreateHabit(bg, models.Habit{UserID: user.ID, Title: "Read", IsGood: true, StartDate: "2024-06-10"})
	if err != nil {
		t.Fatal(err)
	}

	if err := checkValidation(bg, ctx); err != nil {
		t.Fatalf("clean data should validate: %v", err)
	}

	if _, err := ctx.Store.SetCompletion(bg, models.Completion{HabitID: h.ID, Date: "2024-06-01", Completed: true}); err != nil {
		t.Fatal(err)
	}
	if err := checkValidation(bg, ctx); err == nil || !strings.Contains(err.Error(), "before") {
		t.Errorf("completion before start should be reported, got %v", err)
	}
}

func TestCheckValidation_Skips(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	var skip skipError
	if err := checkValidation(context.Background(), ctx); !errors.As(err, &skip) {
		t.Errorf("expected skip without a token, got %v", err)
	}
	ctx.Config.APIToken = "trk_unknown"
	if err := checkValidation(context.Background(), ctx); !errors.As(err, &skip) {
		t.Errorf("expected skip for a token from another server, got %v", err)
	}
}

func TestUserCreateCmd(t *testing.T) {
	gokeyring.MockInit()
	defer func() { _ = keyring.DeleteAPIToken() }()

	ctx, _ := setupTestContext(t)
	bg := context.Background()
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cmd := &UserCreateCmd{Email: "Ada@Example.com", Name: "Ada", SaveToken: true}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("user create failed: %v", err)
	}

	token, err := keyring.GetAPIToken()
	if err != nil {
		t.Fatalf("token was not saved: %v", err)
	}
	if err := ctx.LoadStore(bg); err != nil {
		t.Fatal(err)
	}
	user, err := ctx.Store.GetUserByTokenHash(bg, api.HashToken(token))
	if err != nil {
		t.Fatalf("token does not resolve to the user: %v", err)
	}
	if user.Email != "ada@example.com" || user.Name != "Ada" {
		t.Errorf("unexpected user: %+v", user)
	}

	// Running again rotates the token for the same user.
	if err := (&UserCreateCmd{Email: "ada@example.com", SaveToken: true}).Run(ctx); err != nil {
		t.Fatalf("second user create failed: %v", err)
	}
	rotated, _ := keyring.GetAPIToken()
	if rotated == token {
		t.Error("token should rotate")
	}
	if err := ctx.LoadStore(bg); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Store.GetUserByTokenHash(bg, api.HashToken(token)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("old token should stop working, got %v", err)
	}
	again, err := ctx.Store.GetUserByTokenHash(bg, api.HashToken(rotated))
	if err != nil || again.ID != user.ID {
		t.Errorf("rotated token should belong to the same user: %v", err)
	}
}

func TestUserCreateCmd_Validate(t *testing.T) {
	if err := (&UserCreateCmd{Email: "not-an-email"}).Validate(); err == nil {
		t.Error("invalid email should be rejected")
	}
}
