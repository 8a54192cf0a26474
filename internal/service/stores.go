package service

import (
	"context"
	"time"

	"habitbot/internal/model"
)

// HabitStore is implemented by repository.HabitRepository.
type HabitStore interface {
	Insert(ctx context.Context, name string) (int, error)
	List(ctx context.Context) ([]model.Habit, error)
	Delete(ctx context.Context, id int) (bool, error)
	MarkDone(ctx context.Context, habitID int, day time.Time) (bool, error)
	Summary(ctx context.Context, habitID int) (int, *time.Time, error)
	DatesUpTo(ctx context.Context, habitID int, until time.Time) ([]time.Time, error)
}

// ScheduleStore is implemented by repository.ScheduleRepository.
type ScheduleStore interface {
	Upsert(ctx context.Context, day int, text string) error
	Get(ctx context.Context, day int) (string, bool, error)
	List(ctx context.Context) ([]model.ScheduleEntry, error)
	Delete(ctx context.Context, day int) (bool, error)
}

// NoteStore is implemented by repository.NoteRepository.
type NoteStore interface {
	Insert(ctx context.Context, content string, createdAt time.Time) (int, error)
	List(ctx context.Context) ([]model.Note, error)
	ListContents(ctx context.Context) ([]model.Note, error)
	Delete(ctx context.Context, id int) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
