package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:5000/api/dashboard", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Poll.Interval)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.Storage.HistoryDays)
	assert.Equal(t, 3, cfg.Alerts.StaleAlertAfter)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "UTC", cfg.Chart.Timezone)
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Chart.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc, "the API labels hours in UTC")
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"relative base url": func(c *Config) { c.API.BaseURL = "/api/dashboard" },
		"zero timeout":      func(c *Config) { c.API.Timeout = 0 },
		"fast poll":         func(c *Config) { c.Poll.Interval = 10 * time.Millisecond },
		"bad timezone":      func(c *Config) { c.Chart.Timezone = "Mars/Olympus" },
		"negative history":  func(c *Config) { c.Storage.HistoryDays = -1 },
		"zero stale after":  func(c *Config) { c.Alerts.StaleAlertAfter = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFile_MergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll:\n  interval: 5s\nchart:\n  timezone: UTC\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "UTC", cfg.Chart.Timezone)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)

	loc, err := cfg.Chart.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll: [unclosed"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CWATCH_API_BASE":      "http://cwatch.internal:5000/api/dashboard/",
		"CWATCH_POLL_INTERVAL": "15000",
		"CWATCH_DATA_DIR":      "/var/lib/cwatch",
		"CWATCH_REDIS_ADDR":    "redis:6379",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "http://cwatch.internal:5000/api/dashboard", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
	assert.Equal(t, filepath.Join("/var/lib/cwatch", "cwatch-dashboard.db"), cfg.Storage.Database)
	assert.Equal(t, filepath.Join("/var/lib/cwatch", "logs"), cfg.Logging.Dir)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	env["CWATCH_POLL_INTERVAL"] = "soon"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestWriteExample_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.yaml")
	require.NoError(t, WriteExample(path))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
