// Package config loads trackr settings from an optional YAML file with
// environment overrides. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/utils"
)

type Config struct {
	// DB is a SQLite file path or a PostgreSQL connection string.
	DB string `yaml:"db"`
	// Addr is the listen address for `trackr serve`.
	Addr string `yaml:"addr"`
	// APIURL is the server the client role talks to.
	APIURL string `yaml:"api_url"`
	// APIToken is never read from the file; it comes from env or keyring.
	APIToken string `yaml:"-"`

	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	RateLimit float64       `yaml:"rate_limit"`
	RateBurst int           `yaml:"rate_burst"`

	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`
	Tracing  bool   `yaml:"tracing"`

	// Dir holds logs, the cache and the pid file.
	Dir string `yaml:"-"`
}

func Default() Config {
	return Config{
		DB:        ExpandHome(constants.DefaultDBPath),
		Addr:      constants.DefaultAddr,
		APIURL:    constants.DefaultAPIURL,
		Timeout:   constants.DefaultRequestTimeout,
		CacheTTL:  constants.DefaultCacheTTL,
		RateLimit: constants.DefaultRateLimit,
		RateBurst: constants.DefaultRateBurst,
		Timezone:  "Local",
		Dir:       ExpandHome(constants.DefaultConfigDir),
	}
}

// Load reads path over the defaults and then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	path = ExpandHome(path)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg.Dir = filepath.Dir(path)
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.DB = ExpandHome(cfg.DB)
	return cfg, nil
}

// ApplyEnv overrides fields from the TRACKR_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(constants.EnvDB); v != "" {
		c.DB = v
	}
	if v := getenv(constants.EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := getenv(constants.EnvAPIToken); v != "" {
		c.APIToken = v
	}
	if v := getenv(constants.EnvAddr); v != "" {
		c.Addr = v
	}
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DB) == "" {
		errs = append(errs, errors.New("db must not be empty"))
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Errorf("addr %q: %w", c.Addr, err))
	}
	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_url %q must be an absolute http(s) URL", c.APIURL))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit must be positive, got %v", c.RateLimit))
	}
	if c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("rate_burst must be at least 1, got %d", c.RateBurst))
	}
	if !utils.ValidateTimezone(c.Timezone) {
		errs = append(errs, fmt.Errorf("timezone %q is not a valid IANA name", c.Timezone))
	}

	return errors.Join(errs...)
}

// Save writes the file-backed fields of c to path.
func (c Config) Save(path string) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
