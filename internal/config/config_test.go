package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meditimer/internal/timer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meditimer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":30002", cfg.API.Addr)
	assert.Equal(t, time.Second, cfg.Timer.TickInterval)
	assert.Equal(t, timer.DefaultSeconds, cfg.Timer.DefaultSeconds)
	assert.Equal(t, timer.DefaultPresets(), cfg.Timer.Presets)
	assert.False(t, cfg.HomeKit.Enabled)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
api:
  addr: ":9000"
homekit:
  enabled: true
  pin: "12344321"
timer:
  default_seconds: 300
  tick_interval: 500ms
  bell: false
  presets:
    - name: breath
      seconds: 90
    - name: body-scan
      seconds: 1200
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.API.Addr)
	assert.True(t, cfg.HomeKit.Enabled)
	assert.Equal(t, "12344321", cfg.HomeKit.Pin)
	assert.Equal(t, "./db", cfg.HomeKit.StoreDir, "unset keys keep defaults")
	assert.Equal(t, 300, cfg.Timer.DefaultSeconds)
	assert.Equal(t, 500*time.Millisecond, cfg.Timer.TickInterval)
	assert.False(t, cfg.Timer.Bell)
	assert.Equal(t, []timer.Preset{{Name: "breath", Seconds: 90}, {Name: "body-scan", Seconds: 1200}}, cfg.Timer.Presets)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "api:\n  addr: \":9000\"\n")
	t.Setenv("MEDITIMER_API_ADDR", ":9100")
	t.Setenv("MEDITIMER_DEFAULT_SECONDS", "120")
	t.Setenv("MEDITIMER_BELL", "false")
	t.Setenv("MEDITIMER_TICK_INTERVAL", "not-a-duration")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.API.Addr)
	assert.Equal(t, 120, cfg.Timer.DefaultSeconds)
	assert.False(t, cfg.Timer.Bell)
	assert.Equal(t, time.Second, cfg.Timer.TickInterval, "unparsable values fall back")
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"Malformed YAML", "timer: [\n"},
		{"Default over cap", "timer:\n  default_seconds: 20000\n"},
		{"Bad preset", "timer:\n  presets:\n    - name: x\n      seconds: 0\n"},
		{"Empty address", "api:\n  addr: \"\"\n"},
		{"Short pin", "homekit:\n  enabled: true\n  pin: \"123\"\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadPresets(t *testing.T) {
	path := writeConfig(t, "timer:\n  presets:\n    - name: short\n      seconds: 30\n")
	presets, err := LoadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, []timer.Preset{{Name: "short", Seconds: 30}}, presets)

	_, err = LoadPresets(writeConfig(t, "log_level: info\n"))
	assert.Error(t, err, "a file without presets is rejected")
}

// TestWatchPresets verifies an edited file replaces the catalog contents
func TestWatchPresets(t *testing.T) {
	path := writeConfig(t, "timer:\n  presets:\n    - name: a\n      seconds: 60\n")
	catalog, err := timer.NewCatalog([]timer.Preset{{Name: "a", Seconds: 60}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, WatchPresets(ctx, path, catalog, nil))

	require.NoError(t, os.WriteFile(path, []byte("timer:\n  presets:\n    - name: b\n      seconds: 120\n"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := catalog.Lookup("b")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	// an invalid edit keeps the current presets
	require.NoError(t, os.WriteFile(path, []byte("timer:\n  presets: []\n"), 0o644))
	time.Sleep(2 * reloadDebounce)
	_, ok := catalog.Lookup("b")
	assert.True(t, ok)
}
