package detector

import (
	"fmt"
	"log/slog"
	"os"

	"focusmon/pkg/integrations/hybrid"
	"focusmon/pkg/window"
)

// Provider names accepted by New
const (
	ProviderAuto    = "auto"
	ProviderX11     = "x11"
	ProviderWayland = "wayland"
	ProviderWindows = "windows"
)

// New returns the window detector named by provider. "auto" (or empty)
// chains every detector usable on this system, preferring the session's
// display server
func New(provider string, logger *slog.Logger) (window.Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch provider {
	case "", ProviderAuto:
		return hybrid.NewDetector(logger, platformDetectors(DetectDisplayServer())...)
	case ProviderX11, ProviderWayland, ProviderWindows:
		det := namedDetector(provider)
		if det == nil {
			return nil, fmt.Errorf("window provider %q is not supported on this platform", provider)
		}
		if !det.IsAvailable() {
			det.Close()
			return nil, fmt.Errorf("window provider %q is not available", provider)
		}
		return det, nil
	default:
		return nil, fmt.Errorf("unknown window provider %q (valid: auto, x11, wayland, windows)", provider)
	}
}

// DetectDisplayServer guesses the session's display server from the environment
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
