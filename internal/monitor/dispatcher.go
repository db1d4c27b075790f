package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// dispatcher hands queued events to the current callback every interval.
type dispatcher struct {
	events   *EventChannel
	callback func() InterruptFunc
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// startDispatcher starts delivering once after is closed, so a dispatcher
// that is still finishing a callback is never overlapped. A nil after
// starts immediately.
func startDispatcher(events *EventChannel, callback func() InterruptFunc, interval time.Duration, logger *slog.Logger, after <-chan struct{}) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		events:   events,
		callback: callback,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go d.run(after)
	return d
}

func (d *dispatcher) run(after <-chan struct{}) {
	defer close(d.done)

	if after != nil {
		select {
		case <-after:
		case <-d.ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.dispatch()
		}
	}
}

// dispatch delivers everything queued so a burst does not build a backlog.
// Once stopped it delivers nothing more, not even the rest of the batch.
func (d *dispatcher) dispatch() {
	events := d.events.DrainAll()
	if len(events) == 0 {
		return
	}

	fn := d.callback()
	if fn == nil {
		d.logger.Debug("dropping events, no callback registered", "count", len(events))
		return
	}
	for i, event := range events {
		if d.ctx.Err() != nil {
			d.logger.Debug("dispatcher stopped, dropping rest of batch", "count", len(events)-i)
			return
		}
		if err := d.deliver(fn, event); err != nil {
			d.logger.Error("interrupt callback failed",
				"kind", event.Kind.String(),
				"process", event.ProcessName,
				"error", err)
		}
	}
}

func (d *dispatcher) deliver(fn InterruptFunc, event EdgeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panicked: %v", r)
		}
	}()
	return fn(event.Kind, event.ProcessName, event.Window)
}

// stopping reports whether stop was called or the loop has exited.
func (d *dispatcher) stopping() bool {
	return d.ctx.Err() != nil || !d.alive()
}

func (d *dispatcher) alive() bool {
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

// stop cancels the loop and reports whether it finished within grace.
func (d *dispatcher) stop(grace time.Duration) bool {
	d.cancel()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-d.done:
		return true
	case <-timer.C:
		return false
	}
}
