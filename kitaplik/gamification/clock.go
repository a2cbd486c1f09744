package gamification

import "time"

// Clock abstracts wall-clock time so reset boundaries can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek truncates t to the most recent weekStart at local midnight.
func startOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	days := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return startOfDay(t.AddDate(0, 0, -days))
}

// dailyBoundaryCrossed reports whether lastReset falls on a calendar day
// strictly before now's.
func dailyBoundaryCrossed(lastReset, now time.Time) bool {
	return startOfDay(lastReset).Before(startOfDay(now))
}

// weeklyBoundaryCrossed reports whether lastReset falls in a week strictly
// before now's.
func weeklyBoundaryCrossed(lastReset, now time.Time, weekStart time.Weekday) bool {
	return startOfWeek(lastReset, weekStart).Before(startOfWeek(now, weekStart))
}
