// Package session keeps the per-chat state of multi-step commands such as /addhabit,
// where the bot asks a question and the next plain message is the answer.
package session

import (
	"context"
	"time"
)

type Kind string

const (
	Idle                 Kind = "idle"
	AwaitingHabitName    Kind = "awaiting_habit_name"
	AwaitingScheduleText Kind = "awaiting_schedule_text"
	AwaitingNoteText     Kind = "awaiting_note_text"
)

// State is what a chat is waiting for. Day is set only for AwaitingScheduleText.
type State struct {
	Kind Kind `json:"kind"`
	Day  int  `json:"day,omitempty"`
}

func (s State) IsIdle() bool { return s.Kind == "" || s.Kind == Idle }

// Store persists session state. Entries expire after the store's TTL, which returns the
// chat to Idle.
type Store interface {
	Get(ctx context.Context, chatID int64) (State, error)
	Set(ctx context.Context, chatID int64, state State) error
	Clear(ctx context.Context, chatID int64) error
}

const DefaultTTL = 10 * time.Minute
