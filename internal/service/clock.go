package service

import (
	"time"

	"habitbot/internal/model"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Used by tests and one-off CLI runs.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// today returns the calendar date of now in loc.
func today(c Clock, loc *time.Location) time.Time {
	return model.DateOf(c.Now().In(loc))
}
