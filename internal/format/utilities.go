// Package format provides shared formatting utilities for human-readable output.
package format

import (
	"fmt"
	"time"
)

// Duration formats a duration for human-readable output.
// Handles microseconds, milliseconds, seconds, and minutes.
func Duration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.0fµs", float64(d.Microseconds()))
	}
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Milliseconds()))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	return fmt.Sprintf("%.1fm", d.Minutes())
}

// Seconds renders a probe-reported elapsed time (fractional seconds).
func Seconds(s float64) string {
	return Duration(time.Duration(s * float64(time.Second)))
}
