//go:build !windows

package detector

import (
	"focusmon/pkg/integrations/wayland"
	"focusmon/pkg/integrations/x11"
	"focusmon/pkg/window"
)

func platformDetectors(displayServer string) []window.Detector {
	// XWayland sessions expose both; the compositor answer is authoritative.
	if displayServer == "wayland" {
		return []window.Detector{wayland.NewDetector(), x11.NewDetector()}
	}
	return []window.Detector{x11.NewDetector(), wayland.NewDetector()}
}

func namedDetector(provider string) window.Detector {
	switch provider {
	case ProviderX11:
		return x11.NewDetector()
	case ProviderWayland:
		return wayland.NewDetector()
	default:
		return nil
	}
}
