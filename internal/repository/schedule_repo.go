package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitbot/internal/model"
)

type ScheduleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewScheduleRepository(db *pgxpool.Pool, logger *zap.Logger) *ScheduleRepository {
	return &ScheduleRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert sets the text for a weekday, replacing any existing entry.
func (r *ScheduleRepository) Upsert(ctx context.Context, day int, text string) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO schedules (day_of_week, text)
        VALUES ($1, $2)
        ON CONFLICT (day_of_week) DO UPDATE SET text = EXCLUDED.text
    `, day, text)
	if err != nil {
		r.logger.Error("Failed to upsert schedule", zap.Int("day", day), zap.Error(err))
		return model.StoreErr("upsert schedule", err)
	}
	r.logger.Info("Schedule saved", zap.Int("day", day))
	return nil
}

func (r *ScheduleRepository) Get(ctx context.Context, day int) (string, bool, error) {
	var text string
	err := r.db.QueryRow(ctx, `SELECT text FROM schedules WHERE day_of_week = $1`, day).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		r.logger.Error("Failed to get schedule", zap.Int("day", day), zap.Error(err))
		return "", false, model.StoreErr("get schedule", err)
	}
	return text, true, nil
}

func (r *ScheduleRepository) List(ctx context.Context) ([]model.ScheduleEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT day_of_week, text FROM schedules ORDER BY day_of_week`)
	if err != nil {
		r.logger.Error("Failed to list schedules", zap.Error(err))
		return nil, model.StoreErr("list schedules", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ScheduleEntry, error) {
		var e model.ScheduleEntry
		err := row.Scan(&e.DayOfWeek, &e.Text)
		return e, err
	})
	if err != nil {
		return nil, model.StoreErr("list schedules", err)
	}
	return entries, nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, day int) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM schedules WHERE day_of_week = $1`, day)
	if err != nil {
		r.logger.Error("Failed to delete schedule", zap.Int("day", day), zap.Error(err))
		return false, model.StoreErr("delete schedule", err)
	}
	return tag.RowsAffected() == 1, nil
}
