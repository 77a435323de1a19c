package notification

import (
	"time"

	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

// withinWindow compares the local wall-clock "HH:MM" of now against the
// inclusive bounds. A window whose start is after its end wraps midnight.
// An unset bound disables the check.
func withinWindow(now time.Time, start, end string) bool {
	if start == "" || end == "" {
		return true
	}
	hm := now.Format("15:04")
	if start <= end {
		return hm >= start && hm <= end
	}
	return hm >= start || hm <= end
}

// nextWindowStart is today's window start if it is still ahead of now,
// otherwise tomorrow's.
func nextWindowStart(now time.Time, start string) (time.Time, error) {
	tod, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return time.Time{}, err
	}
	today := tod.On(now)
	if today.After(now) {
		return today, nil
	}
	return tod.On(now.AddDate(0, 0, 1)), nil
}
