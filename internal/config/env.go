package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values and the config file
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("FOCUSMON_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Monitor configuration
	if pollInterval := os.Getenv("FOCUSMON_POLL_INTERVAL"); pollInterval != "" {
		if interval, err := time.ParseDuration(pollInterval); err == nil {
			if interval >= cfg.Monitor.MinPollInterval && interval <= cfg.Monitor.MaxPollInterval {
				cfg.Monitor.PollInterval = interval
			}
		}
	}

	if targets := os.Getenv("FOCUSMON_TARGETS"); targets != "" {
		cfg.Monitor.Targets = nil
		cfg.AddTargets(strings.Split(targets, ",")...)
	}

	if provider := os.Getenv("FOCUSMON_PROVIDER"); provider != "" {
		cfg.Monitor.Provider = provider
	}

	if isolation := os.Getenv("FOCUSMON_ISOLATION"); isolation != "" {
		cfg.Monitor.Isolation = isolation
	}

	// Daemon configuration
	if pidFile := os.Getenv("FOCUSMON_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	// Report configuration
	if timeZone := os.Getenv("FOCUSMON_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}

	// Web configuration
	if webHost := os.Getenv("FOCUSMON_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("FOCUSMON_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}

	// Log configuration
	if level := os.Getenv("FOCUSMON_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if logFile := os.Getenv("FOCUSMON_LOG_FILE"); logFile != "" {
		cfg.Log.File = logFile
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}

// Path returns the config file location, honoring FOCUSMON_CONFIG
func Path() string {
	if path := os.Getenv("FOCUSMON_CONFIG"); path != "" {
		return path
	}
	return DefaultPath()
}
