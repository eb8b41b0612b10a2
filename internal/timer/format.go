package timer

import "fmt"

// FormatClock formats whole seconds as MM:SS, clamped at zero.
func FormatClock(totalSeconds int) string {
	if totalSeconds <= 0 {
		return "00:00"
	}
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}

// FormatRemaining formats remaining seconds with context for display.
func FormatRemaining(totalSeconds int) string {
	if totalSeconds <= 0 {
		return "Time's up!"
	}
	return fmt.Sprintf("%s remaining", FormatClock(totalSeconds))
}

// SplitMinutesSeconds floor-divides whole seconds into (minutes, seconds),
// clamped at zero.
func SplitMinutesSeconds(totalSeconds int) (int, int) {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return totalSeconds / 60, totalSeconds % 60
}
