package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitbot/internal/config"
	"habitbot/internal/notify"
	"habitbot/internal/scheduler"
	"habitbot/internal/service"
	"habitbot/internal/testutil/memstore"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (s *recordingSink) Deliver(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

// Wednesday, 2024-01-10 07:00 UTC.
var now = time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC)

func newJobs(t *testing.T) (*Jobs, *memstore.Store, *recordingSink) {
	t.Helper()
	store := memstore.New()
	clock := service.FixedClock(now)
	log := zap.NewNop()
	sink := &recordingSink{}
	j := New(
		service.NewTracker(store.Habits(), clock, time.UTC, log),
		service.NewPlanner(store.Schedules(), clock, time.UTC, log),
		service.NewNotebook(store.Notes(), clock, log),
		sink, 3, log,
	)
	return j, store, sink
}

func TestMorningDigest(t *testing.T) {
	ctx := context.Background()
	j, store, sink := newJobs(t)
	require.NoError(t, store.Schedules().Upsert(ctx, 2, "Algebra 8:30"))
	require.NoError(t, store.Schedules().Upsert(ctx, 3, "Thursday only"))
	_, err := store.Habits().Insert(ctx, "Read")
	require.NoError(t, err)

	require.NoError(t, j.MorningDigest(ctx))

	require.Len(t, sink.msgs, 1)
	msg := sink.msgs[0]
	assert.Contains(t, msg.Text, "(Wed)")
	assert.Contains(t, msg.Text, "Algebra 8:30")
	assert.NotContains(t, msg.Text, "Thursday only")
	assert.Contains(t, msg.Text, "1. Read")
	assert.Len(t, msg.Keyboard, 1)
}

func TestMorningDigestWithoutData(t *testing.T) {
	j, _, sink := newJobs(t)

	require.NoError(t, j.MorningDigest(context.Background()))
	require.Len(t, sink.msgs, 1)
	assert.Contains(t, sink.msgs[0].Text, "/editschedule")
	assert.Empty(t, sink.msgs[0].Keyboard)
}

func TestMorningDigestErrors(t *testing.T) {
	j, store, sink := newJobs(t)

	sink.err = errors.New("telegram down")
	assert.ErrorIs(t, j.MorningDigest(context.Background()), sink.err)

	sink.err = nil
	store.Fail = true
	assert.Error(t, j.MorningDigest(context.Background()))
	assert.Empty(t, sink.msgs)
}

func TestNotesReminder(t *testing.T) {
	ctx := context.Background()
	j, store, sink := newJobs(t)

	require.NoError(t, j.NotesReminder(ctx))
	assert.Empty(t, sink.msgs)

	store.PutNote("buy milk", now)
	require.NoError(t, j.NotesReminder(ctx))
	require.Len(t, sink.msgs, 1)
	assert.Contains(t, sink.msgs[0].Text, "#1: buy milk")
}

func TestNotesReminderSplitsLongListing(t *testing.T) {
	j, store, sink := newJobs(t)
	for i := 0; i < 6; i++ {
		store.PutNote(strings.Repeat("n", service.MaxNoteLength), now)
	}

	require.NoError(t, j.NotesReminder(context.Background()))
	require.Greater(t, len(sink.msgs), 1)
	var joined []string
	for _, msg := range sink.msgs {
		assert.LessOrEqual(t, utf8.RuneCountInString(msg.Text), notify.MaxMessageLength)
		joined = append(joined, msg.Text)
	}
	for id := 1; id <= 6; id++ {
		assert.Contains(t, strings.Join(joined, "\n\n"), fmt.Sprintf("#%d: ", id))
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	j, store, _ := newJobs(t)
	store.PutNote("old", now.Add(-4*24*time.Hour))
	store.PutNote("fresh", now.Add(-24*time.Hour))

	require.NoError(t, j.Cleanup(ctx))
	notes, err := store.Notes().List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "fresh", notes[0].Content)
}

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (p *fakePruner) DeleteSentBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return 2, p.err
}

func TestCleanupPrunesOutbox(t *testing.T) {
	j, _, _ := newJobs(t)
	p := &fakePruner{}
	j.WithOutboxPruner(p, 7*24*time.Hour)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Cleanup(context.Background()))
	assert.Equal(t, now.Add(-7*24*time.Hour), p.cutoff)

	p.err = errors.New("db down")
	assert.ErrorContains(t, j.Cleanup(context.Background()), "prune outbox")
}

func TestRegister(t *testing.T) {
	j, _, _ := newJobs(t)
	e := scheduler.New(time.UTC, zap.NewNop())

	require.NoError(t, j.Register(e, config.Default().Scheduler))

	var names []string
	for _, entry := range e.Entries() {
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{
		"morning_digest",
		"notes_reminder_15",
		"notes_reminder_18",
		"notes_reminder_21",
		"notes_cleanup",
	}, names)

	entries := e.Entries()
	assert.Equal(t, 0, entries[4].Hour)
	assert.Equal(t, 5, entries[4].Minute)
}

func TestReminderName(t *testing.T) {
	assert.Equal(t, "notes_reminder_09", ReminderName(config.ClockTime{Hour: 9}))
	assert.Equal(t, "notes_reminder_0930", ReminderName(config.ClockTime{Hour: 9, Minute: 30}))
}
