package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitbot/internal/model"
)

// SQLSTATE foreign_key_violation
const fkViolation = "23503"

type HabitRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHabitRepository(db *pgxpool.Pool, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{
		db:     db,
		logger: logger,
	}
}

func (r *HabitRepository) Insert(ctx context.Context, name string) (int, error) {
	r.logger.Debug("Inserting habit", zap.String("name", name))

	var id int
	err := r.db.QueryRow(ctx, `INSERT INTO habits (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert habit", zap.Error(err))
		return 0, model.StoreErr("insert habit", err)
	}

	r.logger.Info("Habit inserted successfully", zap.Int("id", id))
	return id, nil
}

func (r *HabitRepository) List(ctx context.Context) ([]model.Habit, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM habits ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list habits", zap.Error(err))
		return nil, model.StoreErr("list habits", err)
	}
	defer rows.Close()

	habits := []model.Habit{}
	for rows.Next() {
		var h model.Habit
		if err := rows.Scan(&h.ID, &h.Name); err != nil {
			r.logger.Error("Failed to scan habit", zap.Error(err))
			return nil, model.StoreErr("scan habit", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreErr("list habits", err)
	}

	r.logger.Debug("Listed habits", zap.Int("count", len(habits)))
	return habits, nil
}

// Delete removes the habit and its completions in one transaction.
func (r *HabitRepository) Delete(ctx context.Context, id int) (bool, error) {
	var removed bool
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM habit_completions WHERE habit_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM habits WHERE id = $1`, id)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete habit", zap.Int("habit_id", id), zap.Error(err))
		return false, model.StoreErr("delete habit", err)
	}

	r.logger.Info("Habit delete finished",
		zap.Int("habit_id", id),
		zap.Bool("removed", removed),
	)
	return removed, nil
}

// MarkDone records a completion for (habit, day). The unique constraint decides the race:
// false means the row already existed.
func (r *HabitRepository) MarkDone(ctx context.Context, habitID int, day time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO habit_completions (habit_id, done_date)
        VALUES ($1, $2)
        ON CONFLICT (habit_id, done_date) DO NOTHING
    `, habitID, model.DateOf(day))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			return false, model.NotFound("habit", habitID)
		}
		r.logger.Error("Failed to mark habit done",
			zap.Int("habit_id", habitID),
			zap.Error(err),
		)
		return false, model.StoreErr("mark done", err)
	}

	inserted := tag.RowsAffected() == 1
	r.logger.Debug("Mark done",
		zap.Int("habit_id", habitID),
		zap.String("date", day.Format(model.DateLayout)),
		zap.Bool("inserted", inserted),
	)
	return inserted, nil
}

// Summary returns the completion count and the most recent completion date.
func (r *HabitRepository) Summary(ctx context.Context, habitID int) (int, *time.Time, error) {
	var (
		total int
		last  *time.Time
	)
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*), MAX(done_date)
        FROM habit_completions
        WHERE habit_id = $1
    `, habitID).Scan(&total, &last)
	if err != nil {
		r.logger.Error("Failed to load habit summary", zap.Int("habit_id", habitID), zap.Error(err))
		return 0, nil, model.StoreErr("habit summary", err)
	}
	if last != nil {
		d := model.DateOf(*last)
		last = &d
	}
	return total, last, nil
}

// DatesUpTo lists completion dates on or before until, newest first.
func (r *HabitRepository) DatesUpTo(ctx context.Context, habitID int, until time.Time) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `
        SELECT done_date
        FROM habit_completions
        WHERE habit_id = $1 AND done_date <= $2
        ORDER BY done_date DESC
    `, habitID, model.DateOf(until))
	if err != nil {
		r.logger.Error("Failed to list completion dates", zap.Int("habit_id", habitID), zap.Error(err))
		return nil, model.StoreErr("completion dates", err)
	}

	dates, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, model.StoreErr("completion dates", err)
	}
	for i, d := range dates {
		dates[i] = model.DateOf(d)
	}
	return dates, nil
}
