package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/keyring"
	"github.com/greaterodd/odd-trackr/internal/storage/postgres"
)

type KeyringCmd struct {
	Set         KeyringSetCmd         `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
	Get         KeyringGetCmd         `cmd:"" help:"Show the stored connection string (password masked)."`
	Delete      KeyringDeleteCmd      `cmd:"" help:"Remove the stored connection string."`
	Status      KeyringStatusCmd      `cmd:"" help:"Check keyring availability and stored secrets."`
	SetToken    KeyringSetTokenCmd    `cmd:"" help:"Store the API token used by client commands."`
	DeleteToken KeyringDeleteTokenCmd `cmd:"" help:"Remove the stored API token."`
}

type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in keyring"`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if !postgres.IsConnString(cmd.ConnectionString) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// The keyring is encrypted, so a password is allowed here.
		fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
		fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.SetConnectionString(cmd.ConnectionString); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}

	fmt.Println("✓ Connection string stored successfully in OS keyring")
	fmt.Println("  trackr uses it when neither --db nor TRACKR_DB is set")
	return nil
}

type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'trackr keyring set' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}

	fmt.Println("Connection string retrieved from keyring:")
	fmt.Println(maskPassword(connStr))
	return nil
}

type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}

	fmt.Println("✓ Connection string deleted from OS keyring")
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	fmt.Println("✓ OS keyring is available")

	secrets := []struct {
		name string
		get  func() (string, error)
	}{
		{"Connection string", keyring.GetConnectionString},
		{"API token", keyring.GetAPIToken},
	}
	for _, s := range secrets {
		_, err := s.get()
		switch {
		case err == nil:
			fmt.Printf("✓ %s is stored in keyring\n", s.name)
		case errors.Is(err, keyring.ErrNotFound):
			fmt.Printf("ℹ No %s stored in keyring\n", strings.ToLower(s.name))
		default:
			fmt.Printf("⚠ %s: %v\n", s.name, err)
		}
	}
	return nil
}

type KeyringSetTokenCmd struct {
	Token string `arg:"" help:"Bearer token printed by 'trackr user create'."`
}

func (cmd *KeyringSetTokenCmd) Run(ctx *cli.Context) error {
	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		return errors.New("token must not be empty")
	}
	if err := keyring.SetAPIToken(token); err != nil {
		return fmt.Errorf("failed to store API token in keyring: %w", err)
	}
	fmt.Printf("✓ API token %s stored in OS keyring\n", maskToken(token))
	return nil
}

type KeyringDeleteTokenCmd struct{}

func (cmd *KeyringDeleteTokenCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteAPIToken(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no API token found in keyring")
		}
		return fmt.Errorf("failed to delete API token from keyring: %w", err)
	}
	fmt.Println("✓ API token deleted from OS keyring")
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if scheme, rest, ok := strings.Cut(connStr, "://"); ok {
		// The last @ separates user info from host; passwords may contain @.
		at := strings.LastIndex(rest, "@")
		if at < 0 {
			return connStr
		}
		user, _, hasPassword := strings.Cut(rest[:at], ":")
		if !hasPassword {
			return connStr
		}
		return scheme + "://" + user + ":****" + rest[at:]
	}

	parts := strings.Fields(connStr)
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}

func maskToken(token string) string {
	const visible = 8
	if len(token) <= visible {
		return "****"
	}
	return token[:visible] + "****"
}
