package monitor

import (
	"context"
	"errors"
	"log/slog"

	"focusmon/pkg/window"
)

// Worker is a running poller.
type Worker interface {
	// Done is closed once the poller has exited.
	Done() <-chan struct{}
	// Stop asks the poller to exit and returns immediately.
	Stop()
	// Kill terminates the poller without waiting for it to cooperate.
	Kill() error
}

// Spawner starts pollers behind some isolation boundary.
type Spawner interface {
	Spawn(ctx context.Context, spec PollerSpec, sink Sink) (Worker, error)
}

// InProcessSpawner runs the poller in a goroutine of the calling process.
// Kill cannot preempt a provider call; it abandons it.
type InProcessSpawner struct {
	Detector window.Detector
	Logger   *slog.Logger
}

func (s InProcessSpawner) Spawn(ctx context.Context, spec PollerSpec, sink Sink) (Worker, error) {
	if s.Detector == nil {
		return nil, errors.New("in-process spawner has no window detector")
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &goroutineWorker{cancel: cancel, done: make(chan struct{})}
	poller := NewPoller(s.Detector, spec, s.Logger)

	go func() {
		defer close(w.done)
		poller.Run(ctx, sink)
	}()
	return w, nil
}

type goroutineWorker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *goroutineWorker) Done() <-chan struct{} { return w.done }
func (w *goroutineWorker) Stop()                 { w.cancel() }

func (w *goroutineWorker) Kill() error {
	w.cancel()
	return nil
}

func workerAlive(w Worker) bool {
	if w == nil {
		return false
	}
	select {
	case <-w.Done():
		return false
	default:
		return true
	}
}
