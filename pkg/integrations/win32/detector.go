//go:build windows

package win32

import (
	"context"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"focusmon/pkg/integrations/common"
	"focusmon/pkg/window"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
)

const maxClassName = 256

// Detector implements window.Detector for the Win32 foreground window
type Detector struct{}

// NewDetector creates a new Windows detector
func NewDetector() *Detector {
	return &Detector{}
}

// IsAvailable reports whether user32 can be loaded
func (d *Detector) IsAvailable() bool {
	return user32.Load() == nil
}

// GetDisplayServer returns "windows"
func (d *Detector) GetDisplayServer() string {
	return common.DisplayWindows
}

// GetFocusedWindow returns information about the current foreground window
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return nil, errors.New("no foreground window")
	}

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
		return nil, errors.Wrapf(err, "GetWindowThreadProcessId failed for HWND %X", hwnd)
	}

	processName := common.UnknownProcess
	if path, err := processImagePath(pid); err == nil && path != "" {
		processName = filepath.Base(path)
	}

	return &window.WindowInfo{
		Handle:        uint64(hwnd),
		Title:         windowText(hwnd),
		ClassName:     className(hwnd),
		ProcessID:     pid,
		ProcessName:   processName,
		DisplayServer: common.DisplayWindows,
		CapturedAt:    time.Now(),
	}, nil
}

func windowText(hwnd windows.HWND) string {
	var buf [512]uint16
	n, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func className(hwnd windows.HWND) string {
	var buf [maxClassName]uint16
	n, err := windows.GetClassName(hwnd, &buf[0], int32(len(buf)))
	if err != nil {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func processImagePath(pid uint32) (string, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", errors.Wrapf(err, "OpenProcess failed for PID %d", pid)
	}
	defer windows.CloseHandle(handle)

	var buf [windows.MAX_PATH]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", errors.Wrapf(err, "QueryFullProcessImageName failed for PID %d", pid)
	}
	return windows.UTF16ToString(buf[:size]), nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
