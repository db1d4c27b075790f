package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"focusmon/pkg/window"
)

const (
	DefaultPollInterval     = 500 * time.Millisecond
	DefaultRetryBackoff     = time.Second
	DefaultDispatchInterval = 100 * time.Millisecond
	DefaultPollerGrace      = 2 * time.Second
	DefaultDispatcherGrace  = time.Second
)

var errNoWindow = errors.New("window provider returned no window")

// Poller samples the focused window on a fixed cadence.
type Poller struct {
	detector     window.Detector
	targets      Snapshot
	pollInterval time.Duration
	retryBackoff time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewPoller freezes spec.Targets; zero intervals take the defaults.
func NewPoller(detector window.Detector, spec PollerSpec, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		detector:     detector,
		targets:      NewSnapshot(spec.Targets),
		pollInterval: spec.PollInterval,
		retryBackoff: spec.RetryBackoff,
		logger:       logger.With("component", "poller"),
		now:          time.Now,
	}
	if p.pollInterval <= 0 {
		p.pollInterval = DefaultPollInterval
	}
	if p.retryBackoff <= 0 {
		p.retryBackoff = DefaultRetryBackoff
	}
	return p
}

// Run polls until ctx is cancelled. Provider failures are logged and
// retried after the backoff; they never end the loop.
func (p *Poller) Run(ctx context.Context, sink Sink) {
	p.logger.Debug("poller started",
		"targets", p.targets.Names(),
		"poll_interval", p.pollInterval)
	defer p.logger.Debug("poller stopped")

	edges := edgeDetector{targets: p.targets}
	failing := false

	for {
		info, err := p.query(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil && info == nil {
			err = errNoWindow
		}

		if err != nil {
			if !failing {
				p.logger.Warn("focus query failed", "error", err)
			} else {
				p.logger.Debug("focus query still failing", "error", err)
			}
			failing = true
			if !sleepContext(ctx, p.retryBackoff) {
				return
			}
			continue
		}
		if failing {
			p.logger.Info("focus query recovered")
			failing = false
		}

		sample := *info
		if sample.CapturedAt.IsZero() {
			sample.CapturedAt = p.now()
		}

		event, fired := edges.observe(sample)
		sink.PublishState(sample)
		if fired {
			sink.PublishEvent(event)
		}

		if !sleepContext(ctx, p.pollInterval) {
			return
		}
	}
}

// query asks the provider in its own goroutine so a hung provider cannot
// keep the poller from noticing cancellation.
func (p *Poller) query(ctx context.Context) (*window.WindowInfo, error) {
	type result struct {
		info *window.WindowInfo
		err  error
	}

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("window provider panicked: %v", r)}
			}
		}()
		info, err := p.detector.GetFocusedWindow(ctx)
		done <- result{info: info, err: err}
	}()

	select {
	case r := <-done:
		return r.info, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// edgeDetector holds the previous canonical process name between ticks.
type edgeDetector struct {
	targets     Snapshot
	previous    string
	hasPrevious bool
}

// observe evaluates one successful sample. At most one event fires, and the
// first sample may fire Enter with no Exit before it.
func (d *edgeDetector) observe(info window.WindowInfo) (EdgeEvent, bool) {
	current := CanonicalName(info.ProcessName)
	defer func() {
		d.previous = current
		d.hasPrevious = true
	}()

	if d.targets.Len() == 0 {
		return EdgeEvent{}, false
	}

	currentIn := d.targets.Contains(current)
	previousIn := d.hasPrevious && d.targets.Contains(d.previous)

	switch {
	case currentIn && !previousIn:
		return EdgeEvent{Kind: Enter, ProcessName: info.ProcessName, Window: info, Timestamp: info.CapturedAt}, true
	case previousIn && !currentIn:
		return EdgeEvent{Kind: Exit, ProcessName: d.previous, Window: info, Timestamp: info.CapturedAt}, true
	default:
		return EdgeEvent{}, false
	}
}
