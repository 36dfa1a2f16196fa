package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, "ws://localhost:5000/ws", cfg.Realtime.SocketURL)
	assert.Equal(t, 5*time.Second, cfg.APITimeout())
	assert.Equal(t, time.Second, cfg.MinBackoff())
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://chat.example.com/api"
	cfg.Realtime.SocketURL = "wss://chat.example.com/ws"
	cfg.Log.Level = "debug"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.API.BaseURL, loaded.API.BaseURL)
	assert.Equal(t, cfg.Realtime.SocketURL, loaded.Realtime.SocketURL)
	assert.Equal(t, "debug", loaded.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveConfig(path, DefaultConfig()))

	t.Setenv("PARLOR_API_BASE_URL", "https://override.example.com/api")
	t.Setenv("PARLOR_API_TIMEOUT_SECONDS", "9")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 9*time.Second, cfg.APITimeout())
}

func TestValidateRejectsEmptyBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.API.BaseURL = ""
	require.NoError(t, SaveConfig(path, cfg))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
