package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WatchCronSpec spreads watches across the clock by phase-shifting each one
// with its creation time, so watches with equal intervals do not all fire on
// the same minute. createdAt must already be in the scheduler's location.
//
//	interval <= 60   hourly at the creation minute
//	interval <= 240  six slots a day, hours shifted by creationHour % 4
//	interval <= 720  twice a day at creationHour % 12 and +12h
//	otherwise        daily at the creation hour and minute
func WatchCronSpec(intervalMinutes int, createdAt time.Time) string {
	minute := createdAt.Minute()
	hour := createdAt.Hour()

	switch {
	case intervalMinutes <= 60:
		return fmt.Sprintf("%d * * * *", minute)
	case intervalMinutes <= 240:
		return fmt.Sprintf("%d %s * * *", minute, hourList(hour%4, 4))
	case intervalMinutes <= 720:
		return fmt.Sprintf("%d %s * * *", minute, hourList(hour%12, 12))
	default:
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}
}

// RebookCronSpec runs rebooking entries on a plain fixed interval.
func RebookCronSpec(intervalMinutes int) string {
	return fmt.Sprintf("@every %dm", max(intervalMinutes, 1))
}

func hourList(first, step int) string {
	hours := make([]string, 0, 24/step)
	for h := first; h < 24; h += step {
		hours = append(hours, strconv.Itoa(h))
	}
	return strings.Join(hours, ",")
}
