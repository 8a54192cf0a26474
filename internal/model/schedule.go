package model

import "time"

// DaysPerWeek bounds ScheduleEntry.DayOfWeek: 0 = Monday ... 6 = Sunday.
const DaysPerWeek = 7

type ScheduleEntry struct {
	DayOfWeek int    `json:"day_of_week"`
	Text      string `json:"text"`
}

// ValidDay reports whether day is a Monday-based weekday index.
func ValidDay(day int) bool {
	return day >= 0 && day < DaysPerWeek
}

// DayIndex converts a Go weekday (Sunday = 0) to the stored Monday-based index.
func DayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % DaysPerWeek
}
