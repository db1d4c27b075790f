package x11

import (
	"context"
	"os"
	"testing"
	"time"

	"focusmon/pkg/window"
)

func TestNewDetector(t *testing.T) {
	detector := NewDetector()
	if detector == nil {
		t.Fatal("NewDetector() returned nil")
	}
}

func TestGetDisplayServer(t *testing.T) {
	detector := NewDetector()
	displayServer := detector.GetDisplayServer()

	if displayServer != "x11" {
		t.Errorf("GetDisplayServer() = %s, want %s", displayServer, "x11")
	}
}

func TestIsAvailable(t *testing.T) {
	orig := os.Getenv("DISPLAY")
	defer os.Setenv("DISPLAY", orig)

	os.Setenv("DISPLAY", "")
	if NewDetector().IsAvailable() {
		t.Error("IsAvailable() = true without DISPLAY")
	}

	os.Setenv("DISPLAY", ":0")
	if !NewDetector().IsAvailable() {
		t.Error("IsAvailable() = false with DISPLAY set")
	}
}

func TestGetFocusedWindow(t *testing.T) {
	detector := NewDetector()
	defer detector.Close()

	if !detector.IsAvailable() {
		t.Skip("X11 display not available on this system")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	windowInfo, err := detector.GetFocusedWindow(ctx)
	if err != nil {
		t.Logf("GetFocusedWindow() error (may be expected): %v", err)
		return
	}

	if windowInfo == nil {
		t.Fatal("GetFocusedWindow() returned nil windowInfo without error")
	}

	t.Logf("Handle: 0x%x", windowInfo.Handle)
	t.Logf("Title: %s", windowInfo.Title)
	t.Logf("Class: %s", windowInfo.ClassName)
	t.Logf("PID: %d", windowInfo.ProcessID)
	t.Logf("Process Name: %s", windowInfo.ProcessName)

	if windowInfo.ProcessName == "" {
		t.Error("ProcessName is empty")
	}
	if windowInfo.DisplayServer != "x11" {
		t.Errorf("DisplayServer = %s, want x11", windowInfo.DisplayServer)
	}
	if windowInfo.CapturedAt.IsZero() {
		t.Error("CapturedAt is zero")
	}
}

func TestParseWMClass(t *testing.T) {
	tests := []struct {
		name         string
		input        []byte
		wantInstance string
		wantClass    string
	}{
		{
			name:         "Standard format",
			input:        []byte("Navigator\x00Firefox\x00"),
			wantInstance: "Navigator",
			wantClass:    "Firefox",
		},
		{
			name:         "Same instance and class",
			input:        []byte("kitty\x00kitty\x00"),
			wantInstance: "kitty",
			wantClass:    "kitty",
		},
		{
			name:         "Instance only",
			input:        []byte("xterm\x00"),
			wantInstance: "xterm",
			wantClass:    "",
		},
		{
			name:         "Empty",
			input:        nil,
			wantInstance: "",
			wantClass:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance, class := parseWMClass(tt.input)
			if instance != tt.wantInstance || class != tt.wantClass {
				t.Errorf("parseWMClass(%q) = (%q, %q), want (%q, %q)",
					tt.input, instance, class, tt.wantInstance, tt.wantClass)
			}
		})
	}
}

func TestDecodeCardinal(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint32
	}{
		{"pid", []byte{0x92, 0x10, 0x00, 0x00}, 4242},
		{"window id", []byte{0x07, 0x00, 0xa0, 0x03}, 0x3a00007},
		{"short", []byte{0x01, 0x02}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeCardinal(tt.input); got != tt.want {
				t.Errorf("decodeCardinal(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestClose(t *testing.T) {
	detector := NewDetector()
	if err := detector.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
	if err := detector.Close(); err != nil {
		t.Errorf("second Close() returned error: %v", err)
	}
}

func TestDetectorInterface(t *testing.T) {
	var _ window.Detector = (*Detector)(nil)
}
