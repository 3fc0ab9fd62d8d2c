package errors

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

type hintedErr struct{ msg, hint string }

func (e hintedErr) Error() string { return e.msg }
func (e hintedErr) Hint() string  { return e.hint }

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "simple error", err: errors.New("something went wrong"), expected: "Error: something went wrong"},
		{
			name:     "wrapped error",
			err:      fmt.Errorf("failed to connect: %w", errors.New("connection refused")),
			expected: "Error: failed to connect: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Format(tt.err); result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("failed to load %s", "habits")
	if got != "Error: failed to load habits" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestHintFor(t *testing.T) {
	base := hintedErr{msg: "unauthorized", hint: "set TRACKR_API_TOKEN"}

	if got := HintFor(fmt.Errorf("list habits: %w", base)); got != "set TRACKR_API_TOKEN" {
		t.Errorf("HintFor(wrapped) = %q", got)
	}
	if got := HintFor(errors.New("plain")); got != "" {
		t.Errorf("HintFor(plain) = %q, want empty", got)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, hintedErr{msg: "storage not initialized", hint: "run 'trackr init' first"})

	out := buf.String()
	if !strings.Contains(out, "Error: storage not initialized") {
		t.Errorf("Print() missing message: %q", out)
	}
	if !strings.Contains(out, "hint: run 'trackr init' first") {
		t.Errorf("Print() missing hint: %q", out)
	}

	buf.Reset()
	Print(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("Print(nil) wrote %q", buf.String())
	}
}

func TestFatal(t *testing.T) {
	if os.Getenv("TEST_FATAL") == "1" {
		Fatal(errors.New("fatal test error"))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal")
	cmd.Env = append(os.Environ(), "TEST_FATAL=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	if !strings.Contains(stderr.String(), "Error: fatal test error") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
