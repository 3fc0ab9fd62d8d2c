package constants

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SessionState represents the current state of the TUI application
type SessionState int

// ConfirmationMsg is a message to trigger a confirmation dialog
type ConfirmationMsg struct {
	Message string
	Action  func() tea.Cmd
}

const (
	AppName             = "trackr"
	DefaultKeyringUser  = "database-connection"
	APITokenKeyringUser = "api-token"
	Version             = "v0.3.0"

	DefaultConfigDir  = "~/.config/trackr"
	DefaultDBPath     = "~/.config/trackr/trackr.db"
	DefaultConfigFile = "~/.config/trackr/config.yaml"
	DefaultAddr       = "127.0.0.1:8420"
	DefaultAPIURL     = "http://127.0.0.1:8420"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Environment overrides
	EnvDB       = "TRACKR_DB"
	EnvAPIURL   = "TRACKR_API_URL"
	EnvAPIToken = "TRACKR_API_TOKEN"
	EnvAddr     = "TRACKR_ADDR"

	DefaultRequestTimeout = 10 * time.Second
	DefaultCacheTTL       = 24 * time.Hour
	DefaultRateLimit      = 20 // requests per second per token
	DefaultRateBurst      = 40

	// StatusDuration is how long transient TUI notices stay visible
	StatusDuration = 4 * time.Second

	PIDFileName  = "trackr-serve.pid"
	LogFileName  = "trackr.log"
	CacheDirName = "cache"

	MinTitleLength = 2
	MaxTitleLength = 120
)

// Session States
const (
	StateHabits SessionState = iota
	StateStreaks
	StateAddHabit
	StateEditHabit
	StateConfirmDelete
)
