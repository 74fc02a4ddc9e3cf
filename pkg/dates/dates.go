package dates

import (
	"time"
)

// Midnight truncates a time to its calendar date in UTC. Rota dates are
// day-granular; keeping them at UTC midnight makes equality checks exact.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextPeriodStart returns the first Sunday strictly after t. Rota periods
// run Sunday through Saturday.
func NextPeriodStart(t time.Time) time.Time {
	d := Midnight(t).AddDate(0, 0, 1)
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// SameDay reports whether two times fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}
