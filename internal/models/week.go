package models

import (
	"fmt"
	"time"
)

// WeekRange is a Monday-through-Sunday calendar week
type WeekRange struct {
	Start time.Time
	End   time.Time
}

// CurrentWeek returns the week containing now, in now's location. The week
// starts Monday 00:00:00 and ends Sunday 23:59:59.999.
func CurrentWeek(now time.Time) WeekRange {
	offset := (int(now.Weekday()) + 6) % 7 // days since Monday
	y, m, d := now.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
	end := time.Date(y, m, d-offset+6, 23, 59, 59, int(999*time.Millisecond), now.Location())
	return WeekRange{Start: start, End: end}
}

// Contains reports whether t falls inside the week
func (w WeekRange) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Key identifies the week by its Monday, e.g. "2024-06-10"
func (w WeekRange) Key() string {
	return w.Start.Format("2006-01-02")
}

// FormattedRange renders "June 10, 2024 - June 16, 2024"
func (w WeekRange) FormattedRange() string {
	return fmt.Sprintf("%s - %s", w.Start.Format("January 2, 2006"), w.End.Format("January 2, 2006"))
}
