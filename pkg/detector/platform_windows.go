//go:build windows

package detector

import (
	"focusmon/pkg/integrations/win32"
	"focusmon/pkg/window"
)

func platformDetectors(string) []window.Detector {
	return []window.Detector{win32.NewDetector()}
}

func namedDetector(provider string) window.Detector {
	if provider == ProviderWindows {
		return win32.NewDetector()
	}
	return nil
}
