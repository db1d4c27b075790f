package hybrid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"focusmon/pkg/integrations/common"
	"focusmon/pkg/window"
)

// Detector tries a chain of detectors, starting with the one that answered last
type Detector struct {
	detectors []window.Detector
	logger    *slog.Logger

	mu                   sync.Mutex
	lastSuccessfulMethod int
}

// NewDetector builds a chain from the available members of candidates
func NewDetector(logger *slog.Logger, candidates ...window.Detector) (*Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Detector{logger: logger.With("component", "hybrid_detector")}
	for _, det := range candidates {
		if det == nil {
			continue
		}
		if !det.IsAvailable() {
			d.logger.Debug("window detector unavailable", "display_server", det.GetDisplayServer())
			det.Close()
			continue
		}
		d.detectors = append(d.detectors, det)
	}

	if len(d.detectors) == 0 {
		return nil, fmt.Errorf("no window detector available")
	}
	return d, nil
}

// GetFocusedWindow returns the first successful answer of the chain
func (d *Detector) GetFocusedWindow(ctx context.Context) (*window.WindowInfo, error) {
	d.mu.Lock()
	start := d.lastSuccessfulMethod
	d.mu.Unlock()

	var failures []string
	for i := 0; i < len(d.detectors); i++ {
		idx := (start + i) % len(d.detectors)
		det := d.detectors[idx]

		info, err := det.GetFocusedWindow(ctx)
		if err == nil && info != nil {
			d.mu.Lock()
			d.lastSuccessfulMethod = idx
			d.mu.Unlock()
			return info, nil
		}
		if err == nil {
			err = fmt.Errorf("no window information")
		}
		failures = append(failures, fmt.Sprintf("%s: %v", det.GetDisplayServer(), err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("all detection methods failed (%s)", strings.Join(failures, "; "))
}

// IsAvailable reports whether any member is available
func (d *Detector) IsAvailable() bool {
	for _, det := range d.detectors {
		if det.IsAvailable() {
			return true
		}
	}
	return false
}

// GetDisplayServer reports the member that answered last
func (d *Detector) GetDisplayServer() string {
	if len(d.detectors) == 0 {
		return common.DisplayUnknown
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detectors[d.lastSuccessfulMethod].GetDisplayServer()
}

// GetStatus describes the chain for the status command
func (d *Detector) GetStatus() string {
	status := "Hybrid Detector Status:\n"
	for i, det := range d.detectors {
		status += fmt.Sprintf("  %d. %s (available: %v)\n", i+1, det.GetDisplayServer(), det.IsAvailable())
	}
	status += fmt.Sprintf("  Last successful method: %s\n", d.GetDisplayServer())
	return status
}

// Close closes every member
func (d *Detector) Close() error {
	for _, det := range d.detectors {
		if err := det.Close(); err != nil {
			d.logger.Warn("error closing window detector", "display_server", det.GetDisplayServer(), "error", err)
		}
	}
	return nil
}
