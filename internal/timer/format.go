package timer

import (
	"fmt"
)

// FormatClock converts a number of seconds into a MM:SS string. The minutes
// field is not wrapped, so 100 minutes renders as "100:00".
func FormatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

// Progress returns the elapsed fraction of total, clamped to [0, 1].
func Progress(total, remaining int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(total-remaining) / float64(total)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
