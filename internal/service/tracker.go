package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"habitbot/internal/model"
	"habitbot/pkg/metrics"
)

const MaxHabitNameLength = 100

// Tracker owns habit business rules. It keeps no state of its own; every call re-reads the
// store so timers and chat commands never see stale data.
type Tracker struct {
	habits HabitStore
	clock  Clock
	loc    *time.Location
	logger *zap.Logger
}

func NewTracker(habits HabitStore, clock Clock, loc *time.Location, logger *zap.Logger) *Tracker {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{
		habits: habits,
		clock:  clock,
		loc:    loc,
		logger: logger,
	}
}

// Today is the current calendar date in the tracker's timezone.
func (t *Tracker) Today() time.Time {
	return today(t.clock, t.loc)
}

func (t *Tracker) AddHabit(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, model.Validationf("habit name must not be empty")
	}
	if n := utf8.RuneCountInString(name); n > MaxHabitNameLength {
		return 0, model.Validationf("habit name is too long (%d characters, at most %d)", n, MaxHabitNameLength)
	}

	id, err := t.habits.Insert(ctx, name)
	if err != nil {
		return 0, err
	}

	t.logger.Info("Habit added", zap.Int("habit_id", id), zap.String("name", name))
	return id, nil
}

func (t *Tracker) ListHabits(ctx context.Context) ([]model.Habit, error) {
	return t.habits.List(ctx)
}

// MarkDone records a completion of habitID on day. It returns false when the habit was
// already marked for that day.
func (t *Tracker) MarkDone(ctx context.Context, habitID int, day time.Time) (bool, error) {
	ok, err := t.habits.MarkDone(ctx, habitID, model.DateOf(day))
	if err != nil {
		return false, err
	}

	metrics.IncrementHabitCompletion(ok)
	t.logger.Info("Habit marked",
		zap.Int("habit_id", habitID),
		zap.String("date", model.DateOf(day).Format(model.DateLayout)),
		zap.Bool("recorded", ok),
	)
	return ok, nil
}

func (t *Tracker) MarkDoneToday(ctx context.Context, habitID int) (bool, error) {
	return t.MarkDone(ctx, habitID, t.Today())
}

func (t *Tracker) DeleteHabit(ctx context.Context, habitID int) (bool, error) {
	ok, err := t.habits.Delete(ctx, habitID)
	if err != nil {
		return false, err
	}
	if ok {
		t.logger.Info("Habit deleted", zap.Int("habit_id", habitID))
	}
	return ok, nil
}

// HabitStats reports totals and the current streak as of today.
func (t *Tracker) HabitStats(ctx context.Context, habitID int) (model.HabitStats, error) {
	return t.StatsOn(ctx, habitID, t.Today())
}

// StatsOn reports totals and the streak ending at the given day. An unknown habit has zero
// stats rather than an error.
func (t *Tracker) StatsOn(ctx context.Context, habitID int, day time.Time) (model.HabitStats, error) {
	day = model.DateOf(day)

	total, last, err := t.habits.Summary(ctx, habitID)
	if err != nil {
		return model.HabitStats{}, err
	}
	stats := model.HabitStats{Total: total, LastDone: last}
	if total == 0 {
		return stats, nil
	}

	dates, err := t.habits.DatesUpTo(ctx, habitID, day)
	if err != nil {
		return model.HabitStats{}, err
	}
	stats.Streak = Streak(dates, day)
	return stats, nil
}

// AllStats returns stats for every habit, keyed by id.
func (t *Tracker) AllStats(ctx context.Context, habits []model.Habit) (map[int]model.HabitStats, error) {
	day := t.Today()
	out := make(map[int]model.HabitStats, len(habits))
	for _, h := range habits {
		st, err := t.StatsOn(ctx, h.ID, day)
		if err != nil {
			return nil, err
		}
		out[h.ID] = st
	}
	return out, nil
}
