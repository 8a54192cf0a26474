package service

import "time"

// Streak counts consecutive days ending at today that have a completion. dates must be
// calendar dates sorted newest first; dates after today are ignored. The walk starts at
// today, so a habit not done today has a streak of 0.
func Streak(dates []time.Time, today time.Time) int {
	streak := 0
	want := today
	for _, d := range dates {
		if d.After(want) {
			// future date, or a duplicate of a day already counted
			continue
		}
		if !d.Equal(want) {
			break
		}
		streak++
		want = want.AddDate(0, 0, -1)
	}
	return streak
}
