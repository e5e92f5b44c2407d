package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Terminal  TerminalConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	// AllowedOrigins lists browser origins allowed to call the API and open
	// WebSocket streams. Empty means loopback origins only.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// TerminalConfig holds engine-level settings that are not user editable.
type TerminalConfig struct {
	// StateDir holds settings.yaml and session.json. Empty means the user
	// config directory.
	StateDir string `envconfig:"TERMDOCK_STATE_DIR"`
	// ContentRoot is the managed content store directory ("vault").
	ContentRoot string `envconfig:"TERMDOCK_CONTENT_ROOT"`
	// SettingsFile overrides <StateDir>/settings.yaml.
	SettingsFile string `envconfig:"TERMDOCK_SETTINGS_FILE"`
	// OutputBacklog caps buffered output per remote surface, in bytes.
	OutputBacklog int `envconfig:"TERMDOCK_OUTPUT_BACKLOG" default:"1048576"`
	DefaultCols   int `envconfig:"TERMDOCK_DEFAULT_COLS" default:"80"`
	DefaultRows   int `envconfig:"TERMDOCK_DEFAULT_ROWS" default:"24"`
}

const appDirName = "termdock"

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Terminal: TerminalConfig{
			OutputBacklog: 1 << 20,
			DefaultCols:   80,
			DefaultRows:   24,
		},
	}
}

// ResolveStateDir returns the directory that holds persisted settings and
// session state.
func (t TerminalConfig) ResolveStateDir() string {
	if t.StateDir != "" {
		return t.StateDir
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(os.TempDir(), appDirName)
}

// SettingsPath returns the user settings file path.
func (t TerminalConfig) SettingsPath() string {
	if t.SettingsFile != "" {
		return t.SettingsFile
	}
	return filepath.Join(t.ResolveStateDir(), "settings.yaml")
}

// SessionPath returns the persisted session snapshot path, stored alongside
// the settings file.
func (t TerminalConfig) SessionPath() string {
	return filepath.Join(filepath.Dir(t.SettingsPath()), "session.json")
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
