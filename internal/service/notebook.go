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

// DefaultRetentionDays is how long a note lives before the nightly cleanup removes it.
const DefaultRetentionDays = 3

// MaxNoteLength keeps a reminder listing several notes under Telegram's 4096 character limit.
const MaxNoteLength = 1000

// Notebook manages short-lived reminder notes.
type Notebook struct {
	notes  NoteStore
	clock  Clock
	logger *zap.Logger
}

func NewNotebook(notes NoteStore, clock Clock, logger *zap.Logger) *Notebook {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Notebook{
		notes:  notes,
		clock:  clock,
		logger: logger,
	}
}

func (n *Notebook) AddNote(ctx context.Context, content string) (int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, model.Validationf("note must not be empty")
	}
	if n := utf8.RuneCountInString(content); n > MaxNoteLength {
		return 0, model.Validationf("note is too long (%d characters, at most %d)", n, MaxNoteLength)
	}
	return n.notes.Insert(ctx, content, n.clock.Now().UTC())
}

func (n *Notebook) ListNotes(ctx context.Context) ([]model.Note, error) {
	return n.notes.List(ctx)
}

// GetAllNotes returns id and content of every note, for reminders.
func (n *Notebook) GetAllNotes(ctx context.Context) ([]model.Note, error) {
	return n.notes.ListContents(ctx)
}

func (n *Notebook) DeleteNote(ctx context.Context, id int) (bool, error) {
	return n.notes.Delete(ctx, id)
}

// CleanupOldNotes removes notes created strictly before now-days and returns how many were
// removed.
func (n *Notebook) CleanupOldNotes(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, model.Validationf("retention days must be >= 0, got %d", days)
	}

	cutoff := n.clock.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	removed, err := n.notes.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	metrics.AddNotesCleaned(removed)
	if removed > 0 {
		n.logger.Info("Old notes cleaned up",
			zap.Int("retention_days", days),
			zap.Int64("removed", removed),
		)
	}
	return removed, nil
}
