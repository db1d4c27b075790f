package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"focusmon/internal/config"
	"focusmon/internal/daemon"
	"focusmon/internal/database"
	"focusmon/internal/logging"
	"focusmon/internal/monitor"
	"focusmon/internal/tracker"
	"focusmon/internal/web"
	"focusmon/pkg/detector"
)

const shutdownTimeout = 10 * time.Second

// startOptions are the start flags. They are reapplied on every config reload
type startOptions struct {
	configPath   string
	targets      []string
	isolation    string
	provider     string
	pollInterval time.Duration
	web          bool
	port         int
	foreground   bool
}

func (o *startOptions) apply(cfg *config.Config) error {
	cfg.AddTargets(o.targets...)
	if o.isolation != "" {
		cfg.Monitor.Isolation = o.isolation
	}
	if o.provider != "" {
		cfg.Monitor.Provider = o.provider
	}
	if o.pollInterval != 0 {
		if err := cfg.SetPollInterval(o.pollInterval); err != nil {
			return err
		}
	}
	if o.port != 0 {
		if err := cfg.SetWebPort(o.port); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func (o *startOptions) load() (*config.Config, error) {
	cfg, err := config.Load(configPath(o.configPath))
	if err != nil {
		return nil, err
	}
	if err := o.apply(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return config.Path()
}

func startCommand(args []string) error {
	var opts startOptions
	fs := newFlagSet("start")
	fs.StringVarP(&opts.configPath, "config", "c", "", "config file")
	fs.StringSliceVarP(&opts.targets, "target", "t", nil, "target process name (repeatable)")
	fs.StringVar(&opts.isolation, "isolation", "", "poller isolation: process or inprocess")
	fs.StringVar(&opts.provider, "provider", "", "window provider: auto, x11, wayland or windows")
	fs.DurationVar(&opts.pollInterval, "poll-interval", 0, "window sampling interval")
	fs.BoolVarP(&opts.web, "web", "w", false, "serve the JSON API")
	fs.IntVarP(&opts.port, "port", "p", 0, "web API port")
	fs.BoolVarP(&opts.foreground, "foreground", "f", false, "do not detach")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := opts.load()
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}

	if !opts.foreground && !daemon.IsChild() {
		pid, err := daemon.Spawn(append([]string{"start"}, args...), cfg.Log.File)
		if err != nil {
			return err
		}
		fmt.Printf("Daemon started successfully (PID: %d)\n", pid)
		if opts.web {
			fmt.Printf("Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
		}
		fmt.Printf("Logs: %s\n", cfg.Log.File)
		return nil
	}

	return runDaemon(cfg, &opts, dm)
}

func runDaemon(cfg *config.Config, opts *startOptions, dm *daemon.Daemon) error {
	logger := logging.Console(cfg.Log)
	childLog := os.Stderr
	if !opts.foreground {
		fileLogger, logFile, err := logging.OpenFile(cfg.Log)
		if err != nil {
			return err
		}
		defer logFile.Close()
		logger, childLog = fileLogger, logFile
	}
	slog.SetDefault(logger)

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return err
	}
	logger.Info("database ready", "path", db.Path())

	spawner, closeSpawner, err := newSpawner(cfg, childLog, logger)
	if err != nil {
		return err
	}
	defer closeSpawner()

	if err := dm.WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer dm.RemovePID()

	repo := database.NewRepository(db)
	trackerSvc := tracker.NewService(cfg, repo, spawner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := configPath(opts.configPath)
	go func() {
		err := config.Watch(ctx, path, logger, func(next *config.Config) {
			if err := opts.apply(next); err != nil {
				logger.Warn("ignoring reloaded configuration", "path", path, "error", err)
				return
			}
			trackerSvc.ApplyConfig(next)
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("config watcher stopped", "path", path, "error", err)
		}
	}()

	var webServer *web.Server
	if opts.web {
		webServer = web.NewServer(cfg, repo, trackerSvc, logger)
		go func() {
			if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("web server error", "error", err)
			}
		}()
	}

	logger.Info("starting focusmon daemon", "pid", os.Getpid(), "config", path)
	logger.Debug(cfg.String())

	err = trackerSvc.Start(ctx)

	if webServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down web server", "error", err)
		}
	}

	if err != nil && err != context.Canceled {
		return fmt.Errorf("tracker error: %w", err)
	}
	logger.Info("daemon stopped successfully")
	return nil
}

// newSpawner builds the poller spawner for the configured isolation mode.
// The returned func releases whatever the spawner holds
func newSpawner(cfg *config.Config, childLog *os.File, logger *slog.Logger) (monitor.Spawner, func(), error) {
	if cfg.Monitor.Isolation == config.IsolationInProcess {
		det, err := detector.New(cfg.Monitor.Provider, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize window detector: %w", err)
		}
		logger.Info("window detector initialized", "display_server", det.GetDisplayServer())
		return monitor.InProcessSpawner{Detector: det, Logger: logger}, func() { det.Close() }, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	provider, level := cfg.Monitor.Provider, cfg.Log.Level
	spawner := monitor.ProcessSpawner{
		Command: func() *exec.Cmd {
			cmd := exec.Command(exe, "poller", "--provider", provider, "--log-level", level)
			cmd.Stderr = childLog
			return cmd
		},
		Logger: logger,
	}
	return spawner, func() {}, nil
}
