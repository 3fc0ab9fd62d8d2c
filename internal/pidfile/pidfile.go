// Package pidfile keeps a single `trackr serve` per config directory.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/greaterodd/odd-trackr/internal/constants"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrAlreadyRunning is returned by Acquire while another live server owns the file.
var ErrAlreadyRunning = errors.New("trackr server is already running")

// Info is the content of a pid file: "<addr>|<pid>".
type Info struct {
	Addr string
	PID  int
}

type PIDFile struct {
	path string
}

func Path(dir string) string {
	return filepath.Join(dir, constants.PIDFileName)
}

// Acquire claims the pid file in dir for a server listening on addr. A stale
// file, left by a crashed process or a reused pid, is overwritten.
func Acquire(dir, addr string) (*PIDFile, error) {
	path := Path(dir)
	if info, err := Running(dir); err == nil {
		return nil, fmt.Errorf("%w on %s (pid %d)", ErrAlreadyRunning, info.Addr, info.PID)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create pid directory: %w", err)
	}
	content := fmt.Sprintf("%s|%d", addr, getpidFunc())
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}
	return &PIDFile{path: path}, nil
}

// Release removes the pid file. It is safe to call more than once.
func (p *PIDFile) Release() error {
	if p == nil {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Running returns the recorded server if its process is still alive.
func Running(dir string) (Info, error) {
	info, err := read(Path(dir))
	if err != nil {
		return Info{}, err
	}

	process, err := findProcessFunc(info.PID)
	if err != nil || process == nil {
		return Info{}, errors.New("trackr server process not running")
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return Info{}, fmt.Errorf("process with PID %d is not trackr (is %s)", info.PID, process.Executable())
	}
	return info, nil
}

func read(path string) (Info, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Info{}, errors.New("trackr server is not running")
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 {
		return Info{}, errors.New("pid file is malformed")
	}
	if strings.TrimSpace(parts[0]) == "" {
		return Info{}, errors.New("address in pid file is empty")
	}
	pid, err := strconv.Atoi(parts[1])
	if err != nil || pid < 1 {
		return Info{}, errors.New("invalid process ID in pid file")
	}
	return Info{Addr: parts[0], PID: pid}, nil
}
