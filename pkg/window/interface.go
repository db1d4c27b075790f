package window

import (
	"context"
	"time"
)

// WindowInfo is a snapshot of the window holding input focus.
// Values are produced fresh for every sample and never mutated afterwards
type WindowInfo struct {
	Handle        uint64    `json:"handle"`
	Title         string    `json:"title"`
	ClassName     string    `json:"class_name"`
	ProcessID     uint32    `json:"process_id"`
	ProcessName   string    `json:"process_name"`
	DisplayServer string    `json:"display_server"` // "x11", "wayland" or "windows"
	CapturedAt    time.Time `json:"captured_at"`
}

// IsZero reports whether w carries no sample
func (w WindowInfo) IsZero() bool {
	return w.Handle == 0 && w.ProcessName == "" && w.Title == "" && w.CapturedAt.IsZero()
}

// Detector is the interface that all focused window providers must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused window.
	// A failed query returns a nil WindowInfo and a non-nil error.
	GetFocusedWindow(ctx context.Context) (*WindowInfo, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11", "wayland" or "windows")
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}
