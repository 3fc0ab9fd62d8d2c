package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetConnectionString(t *testing.T) {
	gokeyring.MockInit()

	want := "postgres://testuser@localhost:5432/testdb?sslmode=disable"
	if err := SetConnectionString(want); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}

	got, err := GetConnectionString()
	if err != nil {
		t.Fatalf("GetConnectionString() failed: %v", err)
	}
	if got != want {
		t.Errorf("GetConnectionString() = %q, want %q", got, want)
	}
}

func TestSetEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString(""); err == nil {
		t.Error("SetConnectionString(\"\") should return an error")
	}
	if err := SetAPIToken(""); err == nil {
		t.Error("SetAPIToken(\"\") should return an error")
	}
}

func TestGetNotFound(t *testing.T) {
	gokeyring.MockInit()

	_ = DeleteConnectionString()
	_ = DeleteAPIToken()

	if _, err := GetConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetConnectionString() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := GetAPIToken(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAPIToken() error = %v, want %v", err, ErrNotFound)
	}
}

func TestSecretsAreIndependent(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString("postgres://u@localhost/db"); err != nil {
		t.Fatal(err)
	}
	if err := SetAPIToken("tok_123"); err != nil {
		t.Fatal(err)
	}
	if err := DeleteAPIToken(); err != nil {
		t.Fatalf("DeleteAPIToken() failed: %v", err)
	}

	if _, err := GetAPIToken(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAPIToken() after delete error = %v, want ErrNotFound", err)
	}
	conn, err := GetConnectionString()
	if err != nil || conn != "postgres://u@localhost/db" {
		t.Errorf("GetConnectionString() = %q, %v; want connection string to survive token delete", conn, err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	gokeyring.MockInit()

	_ = DeleteConnectionString()
	if err := DeleteConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteConnectionString() error = %v, want %v", err, ErrNotFound)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("IsAvailable() = false, want true in mock mode")
	}
}
