// Package scheduler runs named daily jobs at fixed wall-clock times in one timezone.
//
// A single goroutine keeps the entries in a min-heap ordered by next fire time and sleeps
// until the earliest is due. Each firing runs on its own goroutine, so a slow job never
// holds back another entry. Slots that pass while the process is down are not replayed.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"habitbot/pkg/logger"
	"habitbot/pkg/metrics"
	"habitbot/pkg/otel"
	tracectx "habitbot/pkg/trace"
)

const (
	defaultJobTimeout   = time.Minute
	defaultMisfireGrace = time.Minute
)

// Job is the work done at each firing. Its error is logged and counted, never propagated.
type Job func(ctx context.Context) error

// Entry fires Job every day at Hour:Minute.
type Entry struct {
	Name   string
	Hour   int
	Minute int
	Job    Job
}

// SlotGuard lets at most one caller claim a (handler, id) pair. util.Deduper satisfies it.
type SlotGuard interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
}

type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithSlotGuard(g SlotGuard) Option { return func(e *Engine) { e.guard = g } }

// WithJobTimeout bounds each job run. Zero keeps the default.
func WithJobTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.jobTimeout = d
		}
	}
}

// WithMisfireGrace sets how late a slot may still fire, e.g. after the host was suspended.
func WithMisfireGrace(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.misfireGrace = d
		}
	}
}

type Engine struct {
	loc          *time.Location
	clock        Clock
	guard        SlotGuard
	jobTimeout   time.Duration
	misfireGrace time.Duration
	logger       *zap.Logger

	mu      sync.Mutex
	entries []Entry
	running bool

	wg sync.WaitGroup
}

func New(loc *time.Location, logger *zap.Logger, opts ...Option) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	e := &Engine{
		loc:          loc,
		clock:        systemClock{},
		jobTimeout:   defaultJobTimeout,
		misfireGrace: defaultMisfireGrace,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var ErrRunning = errors.New("scheduler: entries cannot be added while running")

// Add registers an entry. Entries must be added before Run.
func (e *Engine) Add(entry Entry) error {
	if entry.Name == "" || entry.Job == nil {
		return fmt.Errorf("scheduler: entry needs a name and a job")
	}
	if entry.Hour < 0 || entry.Hour > 23 || entry.Minute < 0 || entry.Minute > 59 {
		return fmt.Errorf("scheduler: entry %q has invalid time %02d:%02d", entry.Name, entry.Hour, entry.Minute)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrRunning
	}
	for _, existing := range e.entries {
		if existing.Name == entry.Name {
			return fmt.Errorf("scheduler: duplicate entry %q", entry.Name)
		}
	}
	e.entries = append(e.entries, entry)
	return nil
}

// Entries returns a copy of the registered entries.
func (e *Engine) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Entry(nil), e.entries...)
}

// Run fires entries until ctx is cancelled, then waits for in-flight jobs and returns.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunning
	}
	e.running = true
	entries := append([]Entry(nil), e.entries...)
	e.mu.Unlock()

	defer func() {
		e.wg.Wait()
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	now := e.clock.Now()
	q := make(fireQueue, 0, len(entries))
	for _, entry := range entries {
		q = append(q, &scheduled{entry: entry, next: NextFire(now, entry.Hour, entry.Minute, e.loc)})
	}
	heap.Init(&q)

	e.logger.Info("Scheduler started",
		zap.String("timezone", e.loc.String()),
		zap.Int("entries", len(entries)),
	)

	for {
		if ctx.Err() != nil {
			e.logger.Info("Scheduler stopping, waiting for running jobs")
			return nil
		}
		if q.Len() == 0 {
			<-ctx.Done()
			continue
		}

		top := q[0]
		now := e.clock.Now()
		if wait := top.next.Sub(now); wait > 0 {
			select {
			case <-ctx.Done():
			case <-e.clock.After(wait):
			}
			continue
		}

		slot := top.next
		if late := now.Sub(slot); late > e.misfireGrace {
			metrics.IncrementSlotSkipped(top.entry.Name)
			e.logger.Warn("Scheduled slot missed",
				zap.String("job", top.entry.Name),
				zap.Time("slot", slot),
				zap.Duration("late", late),
			)
		} else {
			e.dispatch(ctx, top.entry, slot)
		}

		top.next = NextFire(now, top.entry.Hour, top.entry.Minute, e.loc)
		heap.Fix(&q, 0)
	}
}

func (e *Engine) dispatch(ctx context.Context, entry Entry, slot time.Time) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runJob(context.WithoutCancel(ctx), entry, slot)
	}()
}

// runJob executes one firing. Shutdown does not cancel it; only the job timeout does.
func (e *Engine) runJob(ctx context.Context, entry Entry, slot time.Time) {
	ctx = tracectx.WithContext(ctx, tracectx.GenerateTraceID())
	ctx, cancel := context.WithTimeout(ctx, e.jobTimeout)
	defer cancel()

	log := logger.WithTrace(ctx, e.logger).With(
		zap.String("job", entry.Name),
		zap.Time("slot", slot),
	)

	if e.guard != nil && !e.guard.AcquireOnce(ctx, "scheduler:"+entry.Name, slot.UTC().Format(time.RFC3339)) {
		metrics.IncrementSlotSkipped(entry.Name)
		log.Info("Slot already claimed, skipping")
		return
	}

	ctx, span := otel.StartSpan(ctx, "job."+entry.Name,
		trace.WithAttributes(
			attribute.String("job.name", entry.Name),
			attribute.String("job.slot", slot.Format(time.RFC3339)),
		),
	)

	start := e.clock.Now()
	status := "success"
	err := safeRun(ctx, entry.Job)
	duration := e.clock.Now().Sub(start)

	var perr *panicError
	switch {
	case errors.As(err, &perr):
		status = "panic"
		log.Error("Job panicked", zap.Any("panic", perr.value), zap.Duration("took", duration))
	case err != nil:
		status = "error"
		log.Error("Job failed", zap.Error(err), zap.Duration("took", duration))
	default:
		log.Info("Job finished", zap.Duration("took", duration))
	}

	otel.EndSpan(span, err)
	metrics.RecordJobRun(entry.Name, status, duration)
}

type panicError struct {
	value any
}

func (p *panicError) Error() string { return fmt.Sprintf("job panic: %v", p.value) }

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return job(ctx)
}
