// Package timegap detects session boundaries in a conversation timeline
// and maintains the informational time_gap marker rows.
package timegap

import (
	"fmt"
	"time"
)

// DefaultThreshold is the minimum gap between two messages that counts
// as a session boundary.
const DefaultThreshold = 30 * time.Minute

// Hours returns the gap between prev and curr in hours, and whether the
// gap meets the threshold. A pair under the threshold is simply not a
// boundary; the returned hours are then zero and must not be used.
func Hours(prev, curr time.Time, threshold time.Duration) (float64, bool) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	gap := curr.Sub(prev)
	if gap < threshold {
		return 0, false
	}
	return gap.Hours(), true
}

// ShouldInsertMarker reports whether a session boundary exists between
// the two timestamps.
func ShouldInsertMarker(prev, curr time.Time, threshold time.Duration) bool {
	_, ok := Hours(prev, curr, threshold)
	return ok
}

// FormatMarker renders the marker text shown to the LLM. The text is
// informational only; marker detection always uses the message type.
func FormatMarker(hours float64) string {
	if hours >= 24 {
		return fmt.Sprintf("[%.1f days have passed. A new session begins.]", hours/24)
	}
	return fmt.Sprintf("[%.1f hours have passed. A new session begins.]", hours)
}
