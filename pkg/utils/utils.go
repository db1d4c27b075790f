// Package utils holds small formatting helpers shared by the CLI and reports
package utils

import "fmt"

// FormatDuration renders seconds with the two most significant units, e.g.
// "1h30m", "12m" or "45s". Negative values render as "0s"
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	hours, minutes, secs := seconds/3600, seconds%3600/60, seconds%60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0 && secs > 0:
		return fmt.Sprintf("%dm%02ds", minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
