package habits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/greaterodd/odd-trackr/internal/cli"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON file with habits and completions maps."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if ctx.Client == nil || ctx.Config == nil || ctx.Config.APIToken == "" {
		return cli.ErrNoToken
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}
	req, err := parseImport(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	created, err := ctx.Client.Import(bg, req.Habits)
	if err != nil {
		return err
	}
	records := 0
	for _, h := range created {
		records += len(h.Completions)
	}
	fmt.Printf("Imported %d habit(s) with %d record(s)\n", len(created), records)
	return nil
}

// parseImport accepts either a bare array of habits or an export document.
func parseImport(data []byte) (validation.ImportRequest, error) {
	var req validation.ImportRequest
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &req.Habits)
		return req, err
	}
	err := json.Unmarshal(trimmed, &req)
	return req, err
}

type ExportCmd struct {
	Output string `short:"o" type:"path" help:"Write to this file instead of stdout."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if ctx.Client == nil || ctx.Config == nil || ctx.Config.APIToken == "" {
		return cli.ErrNoToken
	}

	habits, err := ctx.Client.Export(bg)
	if err != nil {
		return err
	}
	if habits == nil {
		habits = []models.PortableHabit{}
	}
	out, err := json.MarshalIndent(validation.ImportRequest{Habits: habits}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	out = append(out, '\n')

	if c.Output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(c.Output, out, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Output, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d habit(s) to %s\n", len(habits), c.Output)
	return nil
}
