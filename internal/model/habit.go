package model

import "time"

type Habit struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Completion struct {
	ID       int       `json:"id"`
	HabitID  int       `json:"habit_id"`
	DoneDate time.Time `json:"done_date"`
}

// HabitStats is the aggregate view of a habit's completion log as of a given day.
type HabitStats struct {
	Total    int        `json:"total"`
	LastDone *time.Time `json:"last_done,omitempty"`
	Streak   int        `json:"streak"`
}

// LastDoneString renders LastDone as YYYY-MM-DD, or "" if the habit was never done.
func (s HabitStats) LastDoneString() string {
	if s.LastDone == nil {
		return ""
	}
	return s.LastDone.Format(DateLayout)
}
