package system

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/greaterodd/odd-trackr/internal/api"
	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/keyring"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
)

type UserCmd struct {
	Create UserCreateCmd `cmd:"" help:"Create a user (or rotate an existing user's token) and print a bearer token."`
}

type UserCreateCmd struct {
	Email     string `required:"" help:"User email, unique per server."`
	Name      string `help:"Display name."`
	SaveToken bool   `help:"Also store the token in the OS keyring for client commands."`
}

func (c *UserCreateCmd) Validate() error {
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("invalid email %q", c.Email)
	}
	return nil
}

func (c *UserCreateCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if err := ctx.LoadStore(bg); err != nil {
		return err
	}
	defer ctx.Store.Close()

	token, err := api.NewToken()
	if err != nil {
		return err
	}

	user, err := storage.EnsureUser(bg, ctx.Store, models.User{
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Name:  strings.TrimSpace(c.Name),
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	// Existing users get a fresh token; the old one stops working.
	rotated := user.TokenHash != ""
	user.TokenHash = api.HashToken(token)
	if c.Name != "" {
		user.Name = strings.TrimSpace(c.Name)
	}
	if err := ctx.Store.UpdateUser(bg, user); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	if rotated {
		fmt.Printf("Rotated token for %s (ID: %s)\n", user.Email, user.ID)
	} else {
		fmt.Printf("Created user %s (ID: %s)\n", user.Email, user.ID)
	}
	fmt.Println()
	fmt.Println("API token (shown once, store it now):")
	fmt.Printf("  %s\n", token)

	if c.SaveToken {
		if err := keyring.SetAPIToken(token); err != nil {
			if errors.Is(err, keyring.ErrKeyringUnavailable) {
				fmt.Printf("\n⚠ OS keyring unavailable; export %s instead\n", constants.EnvAPIToken)
				return nil
			}
			return fmt.Errorf("failed to store API token in keyring: %w", err)
		}
		fmt.Println("\n✓ Token stored in OS keyring")
	}
	return nil
}
