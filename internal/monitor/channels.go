package monitor

import (
	"sync"

	"focusmon/pkg/window"
)

// StateChannel holds at most one pending window sample. Put replaces an
// unread sample instead of waiting for a reader.
type StateChannel struct {
	ch chan window.WindowInfo
}

func NewStateChannel() *StateChannel {
	return &StateChannel{ch: make(chan window.WindowInfo, 1)}
}

// Put stores info, discarding any sample nobody read yet.
func (c *StateChannel) Put(info window.WindowInfo) {
	for {
		select {
		case c.ch <- info:
			return
		default:
		}

		select {
		case <-c.ch:
		default:
		}
	}
}

// TryGet returns the pending sample, if any, without waiting.
func (c *StateChannel) TryGet() (window.WindowInfo, bool) {
	select {
	case info := <-c.ch:
		return info, true
	default:
		return window.WindowInfo{}, false
	}
}

// Drain empties the channel and returns the newest sample it held.
func (c *StateChannel) Drain() (window.WindowInfo, bool) {
	var (
		latest window.WindowInfo
		found  bool
	)
	for {
		info, ok := c.TryGet()
		if !ok {
			return latest, found
		}
		latest, found = info, true
	}
}

// EventChannel is an unbounded FIFO of edge events.
type EventChannel struct {
	mu    sync.Mutex
	queue []EdgeEvent
}

func NewEventChannel() *EventChannel {
	return &EventChannel{}
}

func (c *EventChannel) Push(event EdgeEvent) {
	c.mu.Lock()
	c.queue = append(c.queue, event)
	c.mu.Unlock()
}

// TryPop returns the oldest event, if any, without waiting.
func (c *EventChannel) TryPop() (EdgeEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return EdgeEvent{}, false
	}
	event := c.queue[0]
	c.queue[0] = EdgeEvent{}
	c.queue = c.queue[1:]
	return event, true
}

// DrainAll removes and returns every pending event in arrival order.
func (c *EventChannel) DrainAll() []EdgeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.queue
	c.queue = nil
	return events
}

func (c *EventChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// channelSink publishes into a controller's channels. A nil events
// discards edge events.
type channelSink struct {
	state  *StateChannel
	events *EventChannel
}

func (s channelSink) PublishState(info window.WindowInfo) { s.state.Put(info) }

func (s channelSink) PublishEvent(event EdgeEvent) {
	if s.events != nil {
		s.events.Push(event)
	}
}
