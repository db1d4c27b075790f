package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"focusmon/pkg/window"
)

type workerHandle struct {
	Worker
}

// ErrSpawn wraps failures to start a poller.
var ErrSpawn = errors.New("failed to spawn poller")

// Options tunes a Controller. Zero values take the package defaults.
type Options struct {
	PollInterval     time.Duration
	RetryBackoff     time.Duration
	DispatchInterval time.Duration
	PollerGrace      time.Duration
	DispatcherGrace  time.Duration
	Logger           *slog.Logger
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.DispatchInterval <= 0 {
		o.DispatchInterval = DefaultDispatchInterval
	}
	if o.PollerGrace <= 0 {
		o.PollerGrace = DefaultPollerGrace
	}
	if o.DispatcherGrace <= 0 {
		o.DispatcherGrace = DefaultDispatcherGrace
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Controller owns the poller and dispatcher lifecycle, the target set and
// both channels. Its methods never block on the poller, and a callback may
// call any of them.
type Controller struct {
	spawner Spawner
	opts    Options
	logger  *slog.Logger

	targets  *TargetSet
	state    *StateChannel
	events   *EventChannel
	callback atomic.Pointer[InterruptFunc]

	// lifecycle serializes start and stop; worker is also read without it.
	lifecycle  sync.Mutex
	worker     atomic.Pointer[workerHandle]
	dispatcher *dispatcher

	lastMu  sync.Mutex
	last    window.WindowInfo
	hasLast bool
}

func NewController(spawner Spawner, opts Options) *Controller {
	opts.setDefaults()
	return &Controller{
		spawner: spawner,
		opts:    opts,
		logger:  opts.Logger.With("component", "monitor"),
		targets: NewTargetSet(),
		state:   NewStateChannel(),
		events:  NewEventChannel(),
	}
}

// RegisterInterruptCallback replaces the callback. A running dispatcher
// picks up the new one on its next tick; a nil fn unregisters.
//
// A poller started while no callback is registered gets no dispatcher and
// its transitions are discarded; register before StartMonitoring.
func (c *Controller) RegisterInterruptCallback(fn InterruptFunc) {
	if fn == nil {
		c.callback.Store(nil)
		return
	}
	c.callback.Store(&fn)
}

func (c *Controller) currentCallback() InterruptFunc {
	if fn := c.callback.Load(); fn != nil {
		return *fn
	}
	return nil
}

// AddInterruptTarget adds name to the target set. A running poller keeps
// the set it was started with until the next StartMonitoring.
func (c *Controller) AddInterruptTarget(name string) {
	if c.targets.Add(name) {
		c.logger.Debug("interrupt target added", "target", CanonicalName(name))
	}
}

// RemoveInterruptTarget removes name from the target set, with the same
// caveat as AddInterruptTarget.
func (c *Controller) RemoveInterruptTarget(name string) {
	if c.targets.Remove(name) {
		c.logger.Debug("interrupt target removed", "target", CanonicalName(name))
	}
}

// Targets returns the canonical target names, sorted.
func (c *Controller) Targets() []string {
	return c.targets.Names()
}

// StartMonitoring spawns a poller unless one is alive, and a dispatcher if
// a callback is registered and none is running. The only error is a failed
// spawn, which wraps ErrSpawn.
func (c *Controller) StartMonitoring() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if current := c.worker.Load(); current != nil {
		if workerAlive(current.Worker) {
			return nil
		}
		c.logger.Warn("poller exited unexpectedly, respawning")
		c.worker.Store(nil)
	}
	if c.spawner == nil {
		return fmt.Errorf("%w: no spawner configured", ErrSpawn)
	}

	spec := PollerSpec{
		Targets:      c.targets.Names(),
		PollInterval: c.opts.PollInterval,
		RetryBackoff: c.opts.RetryBackoff,
	}

	// Without a callback no dispatcher runs for this poller, so its events
	// would only pile up.
	sink := channelSink{state: c.state}
	dispatching := c.currentCallback() != nil
	if dispatching {
		sink.events = c.events
	}

	worker, err := c.spawner.Spawn(context.Background(), spec, sink)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	c.worker.Store(&workerHandle{Worker: worker})

	if dispatching && (c.dispatcher == nil || c.dispatcher.stopping()) {
		var after <-chan struct{}
		if c.dispatcher != nil {
			after = c.dispatcher.done
		}
		c.dispatcher = startDispatcher(c.events, c.currentCallback, c.opts.DispatchInterval, c.logger, after)
	}

	c.logger.Info("monitoring started", "targets", spec.Targets, "dispatcher", c.dispatcher != nil)
	return nil
}

// StopMonitoring stops the poller, killing it after the poller grace
// period, then stops the dispatcher. It never fails.
func (c *Controller) StopMonitoring() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	current := c.worker.Load()
	if current == nil && c.dispatcher == nil {
		return
	}

	if current != nil {
		c.stopWorker(current.Worker)
		c.worker.Store(nil)
	}

	// A dispatcher stuck in a callback is kept so the next StartMonitoring
	// waits for it instead of running the callback concurrently.
	if c.dispatcher != nil {
		if c.dispatcher.stop(c.opts.DispatcherGrace) {
			c.dispatcher = nil
		} else {
			c.logger.Warn("dispatcher did not stop in time, callback still running", "grace", c.opts.DispatcherGrace)
		}
	}

	c.logger.Info("monitoring stopped")
}

func (c *Controller) stopWorker(w Worker) {
	w.Stop()

	timer := time.NewTimer(c.opts.PollerGrace)
	defer timer.Stop()

	select {
	case <-w.Done():
		return
	case <-timer.C:
	}

	c.logger.Warn("poller did not stop in time, killing it", "grace", c.opts.PollerGrace)
	if err := w.Kill(); err != nil {
		c.logger.Error("failed to kill poller", "error", err)
		return
	}

	reap := time.NewTimer(c.opts.PollerGrace)
	defer reap.Stop()
	select {
	case <-w.Done():
	case <-reap.C:
		c.logger.Error("poller still running after kill, abandoning it")
	}
}

// IsMonitoringActive reports whether a poller is alive.
func (c *Controller) IsMonitoringActive() bool {
	current := c.worker.Load()
	return current != nil && workerAlive(current.Worker)
}

// CurrentFocusInfo returns the newest sample, falling back to the last one
// seen. ok is false until the first sample arrives.
func (c *Controller) CurrentFocusInfo() (info window.WindowInfo, ok bool) {
	c.lastMu.Lock()
	defer c.lastMu.Unlock()

	if latest, found := c.state.Drain(); found {
		c.last = latest
		c.hasLast = true
	}
	return c.last, c.hasLast
}

// Close stops monitoring and discards pending samples and events. It is
// safe to call more than once, or on a controller that never started.
func (c *Controller) Close() error {
	c.StopMonitoring()

	c.state.Drain()
	if dropped := c.events.DrainAll(); len(dropped) > 0 {
		c.logger.Debug("discarded undelivered events", "count", len(dropped))
	}

	c.lastMu.Lock()
	c.last = window.WindowInfo{}
	c.hasLast = false
	c.lastMu.Unlock()
	return nil
}
