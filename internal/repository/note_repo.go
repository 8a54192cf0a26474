package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitbot/internal/model"
)

type NoteRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNoteRepository(db *pgxpool.Pool, logger *zap.Logger) *NoteRepository {
	return &NoteRepository{
		db:     db,
		logger: logger,
	}
}

func (r *NoteRepository) Insert(ctx context.Context, content string, createdAt time.Time) (int, error) {
	var id int
	err := r.db.QueryRow(ctx, `
        INSERT INTO notes (content, created_at)
        VALUES ($1, $2)
        RETURNING id
    `, content, createdAt).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert note", zap.Error(err))
		return 0, model.StoreErr("insert note", err)
	}

	r.logger.Info("Note inserted successfully", zap.Int("id", id))
	return id, nil
}

func (r *NoteRepository) List(ctx context.Context) ([]model.Note, error) {
	rows, err := r.db.Query(ctx, `SELECT id, content, created_at FROM notes ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list notes", zap.Error(err))
		return nil, model.StoreErr("list notes", err)
	}

	notes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Note, error) {
		var n model.Note
		err := row.Scan(&n.ID, &n.Content, &n.CreatedAt)
		return n, err
	})
	if err != nil {
		return nil, model.StoreErr("list notes", err)
	}
	return notes, nil
}

// ListContents returns id and content only, for reminders.
func (r *NoteRepository) ListContents(ctx context.Context) ([]model.Note, error) {
	rows, err := r.db.Query(ctx, `SELECT id, content FROM notes ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list note contents", zap.Error(err))
		return nil, model.StoreErr("list note contents", err)
	}

	notes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Note, error) {
		var n model.Note
		err := row.Scan(&n.ID, &n.Content)
		return n, err
	})
	if err != nil {
		return nil, model.StoreErr("list note contents", err)
	}
	return notes, nil
}

func (r *NoteRepository) Delete(ctx context.Context, id int) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete note", zap.Int("note_id", id), zap.Error(err))
		return false, model.StoreErr("delete note", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteOlderThan removes notes created strictly before cutoff.
func (r *NoteRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notes WHERE created_at < $1`, cutoff)
	if err != nil {
		r.logger.Error("Failed to clean up notes", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, model.StoreErr("cleanup notes", err)
	}
	return tag.RowsAffected(), nil
}
