package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"focusmon/internal/config"
	"focusmon/internal/database"
	"focusmon/internal/models"
	"focusmon/internal/monitor"
	"focusmon/pkg/window"
)

// superviseInterval is how often a poller that died on its own is respawned
const superviseInterval = 5 * time.Second

// Status describes the tracker for the status command and the web API
type Status struct {
	Running          bool      `json:"running"`
	MonitoringActive bool      `json:"monitoring_active"`
	Targets          []string  `json:"targets"`
	Isolation        string    `json:"isolation"`
	Provider         string    `json:"provider"`
	PollInterval     string    `json:"poll_interval"`
	StartedAt        time.Time `json:"started_at,omitzero"`
}

// Service runs a monitor.Controller and journals its transitions
type Service struct {
	spawner monitor.Spawner
	repo    *database.Repository
	logger  *slog.Logger

	mu         sync.Mutex
	config     *config.Config
	controller *monitor.Controller
	running    bool
	startedAt  time.Time
	stopChan   chan struct{}
	reloadChan chan *config.Config

	sessionMu   sync.Mutex
	openSession string
}

func NewService(cfg *config.Config, repo *database.Repository, spawner monitor.Spawner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		spawner:    spawner,
		repo:       repo,
		logger:     logger.With("component", "tracker"),
		config:     cfg,
		stopChan:   make(chan struct{}),
		reloadChan: make(chan *config.Config, 1),
	}
}

// Start monitors until ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.running = true
	s.startedAt = time.Now()
	cfg := s.config
	s.mu.Unlock()

	defer func() {
		s.shutdownController()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if err := s.startController(cfg); err != nil {
		return err
	}

	ticker := time.NewTicker(superviseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tracker stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			s.logger.Info("tracker stopped")
			return nil

		case next := <-s.reloadChan:
			s.logger.Info("applying new configuration", "targets", next.Monitor.Targets)
			s.shutdownController()
			s.mu.Lock()
			s.config = next
			s.mu.Unlock()
			if err := s.startController(next); err != nil {
				s.storeError("monitor", err)
			}

		case <-ticker.C:
			s.supervise()
		}
	}
}

// Stop ends a running Start
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		select {
		case <-s.stopChan:
		default:
			close(s.stopChan)
		}
	}
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ApplyConfig replaces the monitor settings. Targets and intervals take
// effect by restarting the monitoring cycle; isolation and provider
// changes need a daemon restart
func (s *Service) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	current := s.config
	s.mu.Unlock()

	if cfg.Monitor.Isolation != current.Monitor.Isolation || cfg.Monitor.Provider != current.Monitor.Provider {
		s.logger.Warn("isolation and provider changes apply after a restart",
			"isolation", cfg.Monitor.Isolation,
			"provider", cfg.Monitor.Provider)
	}

	// Only the newest pending configuration matters.
	select {
	case <-s.reloadChan:
	default:
	}
	s.reloadChan <- cfg
}

// CurrentFocus returns the last window seen by the monitor
func (s *Service) CurrentFocus() (window.WindowInfo, bool) {
	s.mu.Lock()
	c := s.controller
	s.mu.Unlock()

	if c == nil {
		return window.WindowInfo{}, false
	}
	return c.CurrentFocusInfo()
}

// Status reports the tracker state
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:      s.running,
		Targets:      s.config.Monitor.Targets,
		Isolation:    s.config.Monitor.Isolation,
		Provider:     s.config.Monitor.Provider,
		PollInterval: s.config.Monitor.PollInterval.String(),
	}
	if s.running {
		status.StartedAt = s.startedAt
	}
	if s.controller != nil {
		status.MonitoringActive = s.controller.IsMonitoringActive()
		status.Targets = s.controller.Targets()
	}
	return status
}

func (s *Service) startController(cfg *config.Config) error {
	c := monitor.NewController(s.spawner, monitor.Options{
		PollInterval:     cfg.Monitor.PollInterval,
		RetryBackoff:     cfg.Monitor.RetryBackoff,
		DispatchInterval: cfg.Monitor.DispatchInterval,
		PollerGrace:      cfg.Monitor.PollerGrace,
		DispatcherGrace:  cfg.Monitor.DispatcherGrace,
		Logger:           s.logger,
	})
	c.RegisterInterruptCallback(s.handleTransition)
	for _, target := range cfg.Monitor.Targets {
		c.AddInterruptTarget(target)
	}

	if err := c.StartMonitoring(); err != nil {
		c.Close()
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	s.mu.Lock()
	s.controller = c
	s.mu.Unlock()
	return nil
}

func (s *Service) shutdownController() {
	s.mu.Lock()
	c := s.controller
	s.controller = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	c.Close()
	s.closeOpenSession(time.Now())
}

// supervise respawns a poller that exited without being asked to
func (s *Service) supervise() {
	s.mu.Lock()
	c := s.controller
	cfg := s.config
	s.mu.Unlock()

	if c == nil {
		if err := s.startController(cfg); err != nil {
			s.logger.Warn("monitor still not running", "error", err)
		}
		return
	}
	if c.IsMonitoringActive() {
		return
	}

	s.logger.Warn("poller is not running, respawning")
	if err := c.StartMonitoring(); err != nil {
		s.storeError("monitor", err)
	}
}

// handleTransition journals one transition. It runs on the dispatcher
func (s *Service) handleTransition(kind monitor.EdgeKind, processName string, info window.WindowInfo) error {
	transition := &models.FocusTransition{
		Timestamp:     info.CapturedAt,
		Kind:          kind.String(),
		ProcessName:   processName,
		Target:        monitor.CanonicalName(processName),
		WindowTitle:   info.Title,
		ClassName:     info.ClassName,
		ProcessID:     info.ProcessID,
		WindowHandle:  info.Handle,
		DisplayServer: info.DisplayServer,
	}
	if transition.Timestamp.IsZero() {
		transition.Timestamp = time.Now()
	}

	switch kind {
	case monitor.Enter:
		s.logger.Info("entered target", "target", transition.Target, "title", info.Title)
		s.setOpenSession(transition.Target)
	case monitor.Exit:
		s.logger.Info("left target", "target", transition.Target, "now", info.ProcessName, "title", info.Title)
		s.setOpenSession("")
	}

	if err := s.repo.CreateTransition(transition); err != nil {
		s.storeError("journal", err)
		return err
	}
	return nil
}

func (s *Service) setOpenSession(target string) {
	s.sessionMu.Lock()
	s.openSession = target
	s.sessionMu.Unlock()
}

// closeOpenSession journals a stop marker so reports do not count the time
// the tracker was not running
func (s *Service) closeOpenSession(at time.Time) {
	s.sessionMu.Lock()
	target := s.openSession
	s.openSession = ""
	s.sessionMu.Unlock()

	if target == "" {
		return
	}

	marker := &models.FocusTransition{
		Timestamp:   at,
		Kind:        models.TransitionStop,
		ProcessName: target,
		Target:      target,
	}
	if err := s.repo.CreateTransition(marker); err != nil {
		s.storeError("journal", err)
	}
}

func (s *Service) storeError(source string, err error) {
	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Source:    source,
		Message:   err.Error(),
	}

	if dbErr := s.repo.CreateErrorLog(errorLog); dbErr != nil {
		s.logger.Error("failed to store error in database", "error", dbErr, "original_error", err)
	} else {
		s.logger.Error("error logged to database", "source", source, "error", err)
	}
}
