package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Terminal config
	assert.Equal(t, 1<<20, cfg.Terminal.OutputBacklog)
	assert.Equal(t, 80, cfg.Terminal.DefaultCols)
	assert.Equal(t, 24, cfg.Terminal.DefaultRows)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "0.0.0.0",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"RATE_LIMIT_RPS":          "500",
		"RATE_LIMIT_BURST":        "1000",
		"RATE_LIMIT_ENABLED":      "false",
		"TERMDOCK_STATE_DIR":      "/var/lib/termdock",
		"TERMDOCK_CONTENT_ROOT":   "/srv/notes",
		"TERMDOCK_OUTPUT_BACKLOG": "4096",
		"TERMDOCK_DEFAULT_COLS":   "120",
		"TERMDOCK_DEFAULT_ROWS":   "40",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "/var/lib/termdock", cfg.Terminal.StateDir)
	assert.Equal(t, "/srv/notes", cfg.Terminal.ContentRoot)
	assert.Equal(t, 4096, cfg.Terminal.OutputBacklog)
	assert.Equal(t, 120, cfg.Terminal.DefaultCols)
	assert.Equal(t, 40, cfg.Terminal.DefaultRows)
}

func TestLoadWithInvalidValue(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "lots")

	_, err := Load()
	assert.Error(t, err)

	// LoadOrDefault falls back instead of failing
	cfg := LoadOrDefault()
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
}

func TestStatePaths(t *testing.T) {
	tests := []struct {
		name         string
		cfg          TerminalConfig
		wantSettings string
		wantSession  string
	}{
		{
			name:         "state dir",
			cfg:          TerminalConfig{StateDir: "/state"},
			wantSettings: filepath.Join("/state", "settings.yaml"),
			wantSession:  filepath.Join("/state", "session.json"),
		},
		{
			name:         "explicit settings file wins",
			cfg:          TerminalConfig{StateDir: "/state", SettingsFile: "/etc/termdock/settings.toml"},
			wantSettings: "/etc/termdock/settings.toml",
			wantSession:  filepath.Join("/etc/termdock", "session.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantSettings, tt.cfg.SettingsPath())
			assert.Equal(t, tt.wantSession, tt.cfg.SessionPath())
		})
	}
}

func TestResolveStateDirFallsBackToUserConfig(t *testing.T) {
	dir := TerminalConfig{}.ResolveStateDir()
	assert.NotEmpty(t, dir)
	assert.Equal(t, "termdock", filepath.Base(dir))
}
