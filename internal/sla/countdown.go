package sla

import (
	"fmt"
	"time"
)

// UnknownTime is rendered whenever the remaining time cannot be computed.
const UnknownTime = "--:--:--"

// Deadline returns start+duration.
func Deadline(start time.Time, duration time.Duration) time.Time {
	return start.Add(duration)
}

// RemainingSeconds returns floor((deadline-now)/1s). The result is negative once the
// deadline has passed.
func RemainingSeconds(start time.Time, duration time.Duration, now time.Time) int64 {
	diff := Deadline(start, duration).Sub(now)
	secs := int64(diff / time.Second)
	if diff < 0 && diff%time.Second != 0 {
		secs--
	}
	return secs
}

// FormatRemaining renders seconds as HH:MM:SS with a leading '-' when overdue.
func FormatRemaining(seconds int64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, secs)
}
