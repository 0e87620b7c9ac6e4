package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Console Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Backend Backend `yaml:"backend"`
	Session Session `yaml:"session"`
	Shell   Shell   `yaml:"shell"`
	Demo    Demo    `yaml:"demo"`
	Logging Logging `yaml:"logging"`
}

// Backend contains connection settings for the remote auth/data backend.
type Backend struct {
	// BaseURL is the root URL of the backend REST API (no trailing slash).
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// RetryAttempts bounds retries of idempotent GET requests.
	// Mutating requests are never retried.
	RetryAttempts int `yaml:"retry_attempts"`
}

// Session contains session custody settings: the persisted store and
// token expiry handling.
type Session struct {
	Store Store `yaml:"store"`

	// ClockSkew is the number of seconds before the claimed expiry at
	// which an access token is proactively treated as expired. This
	// avoids sending a request that races against server-side expiry.
	ClockSkew int `yaml:"clock_skew"`
}

// Store contains SQLite session store settings.
type Store struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// Shell contains settings for the local console shell HTTP server.
type Shell struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Timeouts ShellTimeouts `yaml:"timeouts"`
	WS       WebSocket     `yaml:"websocket"`
}

// ShellTimeouts contains HTTP timeout settings in seconds.
type ShellTimeouts struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocket contains settings for the session-event WebSocket endpoint.
type WebSocket struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// Demo contains development-only settings.
type Demo struct {
	// RoleOverride enables the in-memory demo role override endpoints.
	// The override never touches the persisted session or the backend;
	// it only changes which role guards evaluate against.
	RoleOverride bool `yaml:"role_override"`
}

// Logging contains logging settings.
type Logging struct {
	Level  string      `yaml:"level"`
	Format string      `yaml:"format"`
	Output string      `yaml:"output"`
	File   FileLogging `yaml:"file"`
}

// FileLogging contains rotating file log settings. Rotation is handled
// by lumberjack; an empty Path disables file output.
type FileLogging struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`    // megabytes before rotation
	MaxBackups int    `yaml:"max_backups"` // rotated files kept
	MaxAge     int    `yaml:"max_age"`     // days before deletion
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CONSOLE_SECTION_KEY
// For example: CONSOLE_BACKEND_BASE_URL, CONSOLE_SESSION_STORE_PATH
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Backend: Backend{
			Timeout:       30,
			RetryAttempts: 3,
		},
		Session: Session{
			Store: Store{
				Path:        "./data/console.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
			ClockSkew: 60,
		},
		Shell: Shell{
			Host: "127.0.0.1",
			Port: 4400,
			Timeouts: ShellTimeouts{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WS: WebSocket{
				Path:           "/ws",
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CONSOLE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Backend
	if v := os.Getenv("CONSOLE_BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}

	// Session store
	if v := os.Getenv("CONSOLE_SESSION_STORE_PATH"); v != "" {
		cfg.Session.Store.Path = v
	}

	// Shell
	if v := os.Getenv("CONSOLE_SHELL_HOST"); v != "" {
		cfg.Shell.Host = v
	}

	// Demo override (development builds; any truthy value enables it)
	if v := os.Getenv("CONSOLE_DEMO_ROLE_OVERRIDE"); v != "" {
		cfg.Demo.RoleOverride = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	// Backend validation — the console is a client; it cannot run
	// without knowing where the backend lives.
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required (set CONSOLE_BACKEND_BASE_URL environment variable)")
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "backend.base_url must be an absolute URL")
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}

	// Session validation
	if c.Session.Store.Path == "" {
		errs = append(errs, "session.store.path is required")
	}
	if c.Session.ClockSkew < 0 {
		errs = append(errs, "session.clock_skew must not be negative")
	}

	// Shell validation
	if c.Shell.Port < 1 || c.Shell.Port > 65535 {
		errs = append(errs, "shell.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetBackendTimeout returns the backend request timeout as a Duration.
func (c *Config) GetBackendTimeout() time.Duration {
	return time.Duration(c.Backend.Timeout) * time.Second
}

// GetClockSkew returns the token expiry clock skew as a Duration.
func (c *Config) GetClockSkew() time.Duration {
	return time.Duration(c.Session.ClockSkew) * time.Second
}

// GetReadTimeout returns the shell read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Shell.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the shell write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Shell.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the shell idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Shell.Timeouts.Idle) * time.Second
}
