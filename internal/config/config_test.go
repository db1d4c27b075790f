package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FOCUSMON_CONFIG", "FOCUSMON_DB_PATH", "FOCUSMON_POLL_INTERVAL",
		"FOCUSMON_TARGETS", "FOCUSMON_PROVIDER", "FOCUSMON_ISOLATION",
		"FOCUSMON_PID_FILE", "FOCUSMON_WEB_HOST", "FOCUSMON_WEB_PORT",
		"FOCUSMON_LOG_LEVEL", "FOCUSMON_LOG_FILE", "FOCUSMON_TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"poll too fast", func(c *Config) { c.Monitor.PollInterval = 10 * time.Millisecond }, true},
		{"poll too slow", func(c *Config) { c.Monitor.PollInterval = time.Minute }, true},
		{"zero grace", func(c *Config) { c.Monitor.PollerGrace = 0 }, true},
		{"bad isolation", func(c *Config) { c.Monitor.Isolation = "container" }, true},
		{"in-process isolation", func(c *Config) { c.Monitor.Isolation = IsolationInProcess }, false},
		{"bad provider", func(c *Config) { c.Monitor.Provider = "quartz" }, true},
		{"bad port", func(c *Config) { c.Web.Port = 70000 }, true},
		{"empty host", func(c *Config) { c.Web.Host = "" }, true},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }, true},
		{"bad time zone", func(c *Config) { c.Report.TimeZone = "Mars/Olympus" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOCUSMON_DB_PATH", "/var/lib/focusmon/test.db")
	t.Setenv("FOCUSMON_POLL_INTERVAL", "250ms")
	t.Setenv("FOCUSMON_TARGETS", "winword.exe, powerpnt.exe")
	t.Setenv("FOCUSMON_ISOLATION", "inprocess")
	t.Setenv("FOCUSMON_WEB_PORT", "8088")
	t.Setenv("FOCUSMON_LOG_LEVEL", "debug")

	cfg := New()
	assert.Equal(t, "/var/lib/focusmon/test.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Monitor.PollInterval)
	assert.Equal(t, []string{"winword.exe", "powerpnt.exe"}, cfg.Monitor.Targets)
	assert.Equal(t, IsolationInProcess, cfg.Monitor.Isolation)
	assert.Equal(t, 8088, cfg.Web.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvIgnoresInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOCUSMON_POLL_INTERVAL", "5ms")
	t.Setenv("FOCUSMON_WEB_PORT", "not-a-port")

	cfg := New()
	assert.Equal(t, Default().Monitor.PollInterval, cfg.Monitor.PollInterval)
	assert.Equal(t, Default().Web.Port, cfg.Web.Port)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[monitor]
poll_interval = "1s"
isolation = "inprocess"
targets = ["notepad.exe", "chrome.exe"]

[web]
port = 9100

[log]
level = "warn"
format = "text"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, IsolationInProcess, cfg.Monitor.Isolation)
	assert.Equal(t, []string{"notepad.exe", "chrome.exe"}, cfg.Monitor.Targets)
	assert.Equal(t, 9100, cfg.Web.Port)
	assert.Equal(t, "text", cfg.Log.Format)

	// Untouched keys keep their defaults.
	assert.Equal(t, time.Second, cfg.Monitor.RetryBackoff)
	assert.Equal(t, "auto", cfg.Monitor.Provider)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[web]\nport = 9100\n")
	t.Setenv("FOCUSMON_WEB_PORT", "9200")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Web.Port)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Monitor.Targets, cfg.Monitor.Targets)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	tests := map[string]string{
		"syntax":      "[monitor\npoll_interval = 1s",
		"unknown key": "[monitor]\npoll_rate = \"1s\"\n",
		"invalid":     "[monitor]\nisolation = \"vm\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			writeFile(t, path, content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestWatchReloads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[monitor]\ntargets = [\"a.exe\"]\n")

	var (
		mu      sync.Mutex
		reloads []*Config
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(cfg *Config) {
			mu.Lock()
			reloads = append(reloads, cfg)
			mu.Unlock()
		})
	}()

	// Give the watcher time to register before the first write.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "[monitor]\ntargets = [\"b.exe\"]\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloads) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	latest := reloads[len(reloads)-1]
	mu.Unlock()
	assert.Equal(t, []string{"b.exe"}, latest.Monitor.Targets)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
