package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"focusmon/pkg/window"
)

var errSequenceExhausted = errors.New("sequence exhausted")

// sequenceDetector answers with names in order. An empty name is a failed
// query. With cycle set it starts over at the end instead of failing.
type sequenceDetector struct {
	mu    sync.Mutex
	names []string
	cycle bool
	calls int
}

func (d *sequenceDetector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.calls
	d.calls++
	if d.cycle && len(d.names) > 0 {
		idx %= len(d.names)
	}
	if idx >= len(d.names) {
		return nil, errSequenceExhausted
	}

	name := d.names[idx]
	if name == "" {
		return nil, errors.New("provider unavailable")
	}
	return &window.WindowInfo{
		Handle:      uint64(idx + 1),
		Title:       name + " - window",
		ProcessName: name,
		ProcessID:   uint32(1000 + idx),
	}, nil
}

func (d *sequenceDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *sequenceDetector) IsAvailable() bool        { return true }
func (d *sequenceDetector) GetDisplayServer() string { return "test" }
func (d *sequenceDetector) Close() error             { return nil }

type recordingSink struct {
	mu     sync.Mutex
	states []window.WindowInfo
	events []EdgeEvent
}

func (s *recordingSink) PublishState(info window.WindowInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, info)
}

func (s *recordingSink) PublishEvent(event EdgeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) snapshot() ([]window.WindowInfo, []EdgeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]window.WindowInfo(nil), s.states...), append([]EdgeEvent(nil), s.events...)
}

// eventRecorder is an InterruptFunc target.
type eventRecorder struct {
	mu     sync.Mutex
	events []EdgeEvent
}

func (r *eventRecorder) record(kind EdgeKind, processName string, info window.WindowInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, EdgeEvent{Kind: kind, ProcessName: processName, Window: info})
	return nil
}

func (r *eventRecorder) snapshot() []EdgeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EdgeEvent(nil), r.events...)
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
