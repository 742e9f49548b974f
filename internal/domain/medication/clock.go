package medication

import (
	"fmt"
	"time"
)

// CombineOnDay builds the absolute timestamp for a "HH:MM" reminder
// clock-time on the given calendar day, in day's location.
func CombineOnDay(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
