package nl

import "time"

// Clock supplies the operational "now" for date and range resolution. Now
// is injectable so tests can pin the calendar.
type Clock struct {
	Now func() time.Time
	Loc *time.Location
}

// SystemClock returns a wall clock in the given operational timezone.
func SystemClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Loc: loc}
}

// Today is the current calendar day in the clock's location, truncated to
// midnight.
func (c Clock) Today() time.Time {
	now := c.Now().In(c.Loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.Loc)
}
