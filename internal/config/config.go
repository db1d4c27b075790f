package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	IsolationProcess   = "process"
	IsolationInProcess = "inprocess"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Focus monitor configuration
	Monitor MonitorConfig `toml:"monitor"`

	// Daemon configuration
	Daemon DaemonConfig `toml:"daemon"`

	// Report configuration
	Report ReportConfig `toml:"report"`

	// Web server configuration
	Web WebConfig `toml:"web"`

	// Log configuration
	Log LogConfig `toml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `toml:"path"` // Path to SQLite database file
}

// MonitorConfig holds focus monitoring configuration
type MonitorConfig struct {
	PollInterval     time.Duration `toml:"poll_interval"`     // How often to sample the focused window
	MinPollInterval  time.Duration `toml:"-"`                 // Minimum allowed poll interval
	MaxPollInterval  time.Duration `toml:"-"`                 // Maximum allowed poll interval
	RetryBackoff     time.Duration `toml:"retry_backoff"`     // Wait after a failed window query
	DispatchInterval time.Duration `toml:"dispatch_interval"` // How often queued transitions reach the callback
	PollerGrace      time.Duration `toml:"poller_grace"`      // Wait before killing a poller on stop
	DispatcherGrace  time.Duration `toml:"dispatcher_grace"`  // Wait for the dispatcher on stop
	Isolation        string        `toml:"isolation"`         // "process" or "inprocess"
	Provider         string        `toml:"provider"`          // "auto", "x11", "wayland" or "windows"
	Targets          []string      `toml:"targets"`           // Process names to report transitions for
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `toml:"pid_file"` // Path to PID file for daemon management
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `toml:"timezone"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `toml:"host"` // Host to bind web server to
	Port int    `toml:"port"` // Port for web server
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn or error
	File   string `toml:"file"`   // Daemon log file
	Format string `toml:"format"` // "text" or "json"
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/focusmon/focusmon.db
		},
		Monitor: MonitorConfig{
			PollInterval:     500 * time.Millisecond,
			MinPollInterval:  100 * time.Millisecond,
			MaxPollInterval:  10 * time.Second,
			RetryBackoff:     time.Second,
			DispatchInterval: 100 * time.Millisecond,
			PollerGrace:      2 * time.Second,
			DispatcherGrace:  time.Second,
			Isolation:        IsolationProcess,
			Provider:         "auto",
			Targets:          []string{"POWERPNT.EXE"},
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/focusmon-%d.pid", os.Getuid()),
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(), // Default port based on user ID
		},
		Log: LogConfig{
			Level:  "info",
			File:   fmt.Sprintf("/tmp/focusmon-%d.log", os.Getuid()),
			Format: "json",
		},
	}
}

// DefaultPath returns ~/.config/focusmon/config.toml
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(homeDir, ".config", "focusmon", "config.toml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate monitor intervals
	if c.Monitor.PollInterval < c.Monitor.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Monitor.PollInterval, c.Monitor.MinPollInterval)
	}

	if c.Monitor.PollInterval > c.Monitor.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Monitor.PollInterval, c.Monitor.MaxPollInterval)
	}

	for name, d := range map[string]time.Duration{
		"retry backoff":     c.Monitor.RetryBackoff,
		"dispatch interval": c.Monitor.DispatchInterval,
		"poller grace":      c.Monitor.PollerGrace,
		"dispatcher grace":  c.Monitor.DispatcherGrace,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}

	switch c.Monitor.Isolation {
	case IsolationProcess, IsolationInProcess:
	default:
		return fmt.Errorf("isolation must be %q or %q, got %q",
			IsolationProcess, IsolationInProcess, c.Monitor.Isolation)
	}

	switch c.Monitor.Provider {
	case "auto", "x11", "wayland", "windows":
	default:
		return fmt.Errorf("unknown window provider %q", c.Monitor.Provider)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if _, err := time.LoadLocation(c.Report.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Report.TimeZone, err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Monitor.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Monitor.MinPollInterval)
	}
	if interval > c.Monitor.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Monitor.MaxPollInterval)
	}
	c.Monitor.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// AddTargets appends process names not already configured, ignoring case
func (c *Config) AddTargets(names ...string) {
	seen := make(map[string]bool, len(c.Monitor.Targets))
	for _, t := range c.Monitor.Targets {
		seen[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	for _, name := range names {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.Monitor.Targets = append(c.Monitor.Targets, strings.TrimSpace(name))
	}
}

// Location returns the report time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Monitor:
    Poll Interval: %v
    Retry Backoff: %v
    Dispatch Interval: %v
    Poller Grace: %v
    Dispatcher Grace: %v
    Isolation: %s
    Provider: %s
    Targets: %s
  Daemon:
    PID File: %s
  Report:
    Time Zone: %s
  Web:
    Host: %s
    Port: %d
  Log:
    Level: %s
    File: %s
    Format: %s`,
		c.Database.Path,
		c.Monitor.PollInterval,
		c.Monitor.RetryBackoff,
		c.Monitor.DispatchInterval,
		c.Monitor.PollerGrace,
		c.Monitor.DispatcherGrace,
		c.Monitor.Isolation,
		c.Monitor.Provider,
		strings.Join(c.Monitor.Targets, ", "),
		c.Daemon.PIDFile,
		c.Report.TimeZone,
		c.Web.Host,
		c.Web.Port,
		c.Log.Level,
		c.Log.File,
		c.Log.Format,
	)
}
