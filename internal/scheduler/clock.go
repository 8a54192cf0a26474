package scheduler

import "time"

// Clock abstracts wall-clock reads and sleeping so tests can drive the engine.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NextFire returns the first hour:minute in loc strictly after now.
func NextFire(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	next := time.Date(y, m, d, hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(y, m, d+1, hour, minute, 0, 0, loc)
	}
	return next
}
