//go:build windows

package win32

import (
	"context"
	"testing"

	"focusmon/pkg/window"
)

func TestGetDisplayServer(t *testing.T) {
	if got := NewDetector().GetDisplayServer(); got != "windows" {
		t.Errorf("GetDisplayServer() = %s, want windows", got)
	}
}

func TestGetFocusedWindow(t *testing.T) {
	detector := NewDetector()
	if !detector.IsAvailable() {
		t.Skip("user32 not available")
	}

	info, err := detector.GetFocusedWindow(context.Background())
	if err != nil {
		t.Logf("GetFocusedWindow() error (may be expected on a headless session): %v", err)
		return
	}

	t.Logf("Title: %s", info.Title)
	t.Logf("Class: %s", info.ClassName)
	t.Logf("Process: %s (%d)", info.ProcessName, info.ProcessID)

	if info.ProcessName == "" {
		t.Error("ProcessName is empty")
	}
}

func TestDetectorInterface(t *testing.T) {
	var _ window.Detector = (*Detector)(nil)
}
