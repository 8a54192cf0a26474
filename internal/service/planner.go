package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"habitbot/internal/model"
)

// Planner manages the weekly class schedule.
type Planner struct {
	schedules ScheduleStore
	clock     Clock
	loc       *time.Location
	logger    *zap.Logger
}

func NewPlanner(schedules ScheduleStore, clock Clock, loc *time.Location, logger *zap.Logger) *Planner {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Planner{
		schedules: schedules,
		clock:     clock,
		loc:       loc,
		logger:    logger,
	}
}

// Today returns today's Monday-based weekday index in the planner's timezone.
func (p *Planner) Today() int {
	return model.DayIndex(p.clock.Now().In(p.loc).Weekday())
}

func (p *Planner) SetScheduleForDay(ctx context.Context, day int, text string) error {
	if !model.ValidDay(day) {
		return model.Validationf("day_of_week must be in 0..6, got %d", day)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Validationf("schedule text must not be empty")
	}
	return p.schedules.Upsert(ctx, day, text)
}

func (p *Planner) GetScheduleForDay(ctx context.Context, day int) (string, bool, error) {
	if !model.ValidDay(day) {
		return "", false, model.Validationf("day_of_week must be in 0..6, got %d", day)
	}
	return p.schedules.Get(ctx, day)
}

func (p *Planner) ListAllSchedules(ctx context.Context) ([]model.ScheduleEntry, error) {
	return p.schedules.List(ctx)
}

func (p *Planner) DeleteScheduleForDay(ctx context.Context, day int) (bool, error) {
	if !model.ValidDay(day) {
		return false, model.Validationf("day_of_week must be in 0..6, got %d", day)
	}
	ok, err := p.schedules.Delete(ctx, day)
	if err != nil {
		return false, err
	}
	if ok {
		p.logger.Info("Schedule deleted", zap.Int("day", day))
	}
	return ok, nil
}
