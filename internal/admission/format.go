package admission

import (
	"fmt"
	"time"
)

// FormatDuration renders a wait or remaining time the way users read it:
// "45 seconds", "2 minutes", "1 hour 5 minutes". Partial minutes round up.
func FormatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return "0 seconds"
	}
	if secs < 60 {
		return plural(secs, "second")
	}

	minutes := (secs + 59) / 60
	if minutes < 60 {
		return plural(minutes, "minute")
	}

	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return plural(hours, "hour")
	}
	return plural(hours, "hour") + " " + plural(rest, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
