package common

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Display server identifiers reported by detectors
const (
	DisplayX11     = "x11"
	DisplayWayland = "wayland"
	DisplayWindows = "windows"
	DisplayUnknown = "unknown"
)

// UnknownProcess is reported when the owning process cannot be resolved
const UnknownProcess = "Unknown"

// procRoot is swapped in tests
var procRoot = "/proc"

// commLen is the longest name the kernel keeps in /proc/<pid>/comm
// (TASK_COMM_LEN minus the terminating NUL)
const commLen = 15

// ProcessName resolves the executable name of pid. It reads /proc/<pid>/comm,
// recovering names the kernel truncated, and falls back to ps for systems
// without procfs
func ProcessName(ctx context.Context, pid uint32) string {
	if pid == 0 {
		return ""
	}

	dir := filepath.Join(procRoot, strconv.FormatUint(uint64(pid), 10))
	data, err := os.ReadFile(filepath.Join(dir, "comm"))
	if err == nil {
		if name := strings.TrimSpace(string(data)); name != "" {
			if len(name) == commLen {
				return untruncatedName(dir, name)
			}
			return name
		}
	}

	cmd := exec.CommandContext(ctx, "ps", "-p", strconv.FormatUint(uint64(pid), 10), "-o", "comm=")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// untruncatedName looks for the full executable name behind a comm value
// cut at commLen bytes, first in the exe link, then in argv[0]. It returns
// comm when neither starts with it
func untruncatedName(dir, comm string) string {
	if target, err := os.Readlink(filepath.Join(dir, "exe")); err == nil {
		base := filepath.Base(strings.TrimSuffix(target, " (deleted)"))
		if len(base) > len(comm) && strings.HasPrefix(base, comm) {
			return base
		}
	}

	if cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		argv0, _, _ := strings.Cut(string(cmdline), "\x00")
		base := filepath.Base(argv0)
		if len(base) > len(comm) && strings.HasPrefix(base, comm) {
			return base
		}
	}

	return comm
}

// CommandExists checks if a command is available in PATH
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
