// Package jobs holds the scheduled work: the morning digest, the note reminders and the
// nightly note cleanup.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"habitbot/internal/config"
	"habitbot/internal/notify"
	"habitbot/internal/scheduler"
	"habitbot/internal/service"
	"habitbot/pkg/logger"
)

// Job names as they appear in logs and metrics.
const (
	MorningDigestName = "morning_digest"
	NotesReminderName = "notes_reminder"
	NotesCleanupName  = "notes_cleanup"
)

// ReminderName names a note reminder entry after its firing time.
func ReminderName(at config.ClockTime) string {
	if at.Minute == 0 {
		return fmt.Sprintf("%s_%02d", NotesReminderName, at.Hour)
	}
	return fmt.Sprintf("%s_%02d%02d", NotesReminderName, at.Hour, at.Minute)
}

// OutboxPruner removes delivered outbox events. *outbox.Repository implements it.
type OutboxPruner interface {
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Jobs struct {
	tracker       *service.Tracker
	planner       *service.Planner
	notebook      *service.Notebook
	sink          notify.Sink
	retentionDays int
	logger        *zap.Logger

	pruner     OutboxPruner
	outboxKeep time.Duration
	now        func() time.Time
}

func New(
	tracker *service.Tracker,
	planner *service.Planner,
	notebook *service.Notebook,
	sink notify.Sink,
	retentionDays int,
	logger *zap.Logger,
) *Jobs {
	return &Jobs{
		tracker:       tracker,
		planner:       planner,
		notebook:      notebook,
		sink:          sink,
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}
}

// WithOutboxPruner makes Cleanup also delete outbox events sent more than keep ago.
func (j *Jobs) WithOutboxPruner(p OutboxPruner, keep time.Duration) *Jobs {
	j.pruner = p
	j.outboxKeep = keep
	return j
}

// BuildDigest assembles today's digest without sending it.
func (j *Jobs) BuildDigest(ctx context.Context) (notify.Message, error) {
	day := j.planner.Today()
	text, ok, err := j.planner.GetScheduleForDay(ctx, day)
	if err != nil {
		return notify.Message{}, fmt.Errorf("load schedule: %w", err)
	}
	habits, err := j.tracker.ListHabits(ctx)
	if err != nil {
		return notify.Message{}, fmt.Errorf("load habits: %w", err)
	}

	var schedule *string
	if ok {
		schedule = &text
	}
	return notify.FormatDigest(day, schedule, habits), nil
}

func (j *Jobs) MorningDigest(ctx context.Context) error {
	msg, err := j.BuildDigest(ctx)
	if err != nil {
		return err
	}
	for _, part := range notify.Split(msg, notify.MaxMessageLength) {
		if err := j.sink.Deliver(ctx, part); err != nil {
			return fmt.Errorf("deliver digest: %w", err)
		}
	}
	return nil
}

// NotesReminder sends every stored note. Nothing is sent when there are no notes.
func (j *Jobs) NotesReminder(ctx context.Context) error {
	notes, err := j.notebook.GetAllNotes(ctx)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	msg, ok := notify.FormatNotesReminder(notes)
	if !ok {
		logger.WithTrace(ctx, j.logger).Debug("No notes to remind about")
		return nil
	}
	for _, part := range notify.Split(msg, notify.MaxMessageLength) {
		if err := j.sink.Deliver(ctx, part); err != nil {
			return fmt.Errorf("deliver reminder: %w", err)
		}
	}
	return nil
}

func (j *Jobs) Cleanup(ctx context.Context) error {
	removed, err := j.notebook.CleanupOldNotes(ctx, j.retentionDays)
	if err != nil {
		return fmt.Errorf("cleanup notes: %w", err)
	}
	log := logger.WithTrace(ctx, j.logger)
	log.Info("Notes cleanup done",
		zap.Int("retention_days", j.retentionDays),
		zap.Int64("removed", removed),
	)

	if j.pruner == nil {
		return nil
	}
	pruned, err := j.pruner.DeleteSentBefore(ctx, j.now().Add(-j.outboxKeep))
	if err != nil {
		return fmt.Errorf("prune outbox: %w", err)
	}
	if pruned > 0 {
		log.Info("Sent outbox events pruned", zap.Int64("removed", pruned))
	}
	return nil
}

// Register adds the digest, one reminder per configured time and the cleanup to e.
func (j *Jobs) Register(e *scheduler.Engine, cfg config.SchedulerConfig) error {
	entries := []scheduler.Entry{
		{Name: MorningDigestName, Hour: cfg.Digest.Hour, Minute: cfg.Digest.Minute, Job: j.MorningDigest},
	}
	for _, at := range cfg.Reminders {
		entries = append(entries, scheduler.Entry{Name: ReminderName(at), Hour: at.Hour, Minute: at.Minute, Job: j.NotesReminder})
	}
	entries = append(entries, scheduler.Entry{Name: NotesCleanupName, Hour: cfg.Cleanup.Hour, Minute: cfg.Cleanup.Minute, Job: j.Cleanup})

	for _, entry := range entries {
		if err := e.Add(entry); err != nil {
			return err
		}
	}
	return nil
}
