package monitor

import (
	"fmt"
	"time"

	"focusmon/pkg/window"
)

// EdgeKind tells whether focus moved into or out of the target set.
type EdgeKind int

const (
	Enter EdgeKind = iota + 1
	Exit
)

func (k EdgeKind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

func (k EdgeKind) MarshalText() ([]byte, error) {
	if k != Enter && k != Exit {
		return nil, fmt.Errorf("invalid edge kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *EdgeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "enter":
		*k = Enter
	case "exit":
		*k = Exit
	default:
		return fmt.Errorf("invalid edge kind %q", text)
	}
	return nil
}

// EdgeEvent is a detected transition. For Enter, ProcessName is the name
// reported by the window provider; for Exit it is the canonical name of the
// target that lost focus.
type EdgeEvent struct {
	Kind        EdgeKind          `json:"kind"`
	ProcessName string            `json:"process_name"`
	Window      window.WindowInfo `json:"window"`
	Timestamp   time.Time         `json:"timestamp"`
}

// InterruptFunc receives transitions from the dispatcher. A returned error
// is logged and does not stop delivery of later events.
type InterruptFunc func(kind EdgeKind, processName string, info window.WindowInfo) error

// Sink is where a poller publishes. Implementations must not block.
type Sink interface {
	PublishState(info window.WindowInfo)
	PublishEvent(event EdgeEvent)
}

// PollerSpec is everything a poller needs, frozen when it is spawned.
type PollerSpec struct {
	Targets      []string      `cbor:"targets"`
	PollInterval time.Duration `cbor:"poll_interval"`
	RetryBackoff time.Duration `cbor:"retry_backoff"`
}
