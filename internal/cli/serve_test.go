package cli

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitbot/internal/scheduler"
)

type stepClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []chan time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, ch)
	return ch
}

// Set moves the clock to now and wakes every sleeper.
func (c *stepClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	for _, ch := range c.waiters {
		ch <- now
	}
	c.waiters = nil
}

func (c *stepClock) sleepers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func startBlockingJob(t *testing.T) (started, release chan struct{}, done chan struct{}, stop context.CancelFunc) {
	t.Helper()
	clock := &stepClock{now: time.Date(2024, 1, 10, 6, 59, 0, 0, time.UTC)}
	e := scheduler.New(time.UTC, zap.NewNop(), scheduler.WithClock(clock), scheduler.WithJobTimeout(time.Hour))

	started = make(chan struct{})
	release = make(chan struct{})
	require.NoError(t, e.Add(scheduler.Entry{Name: "digest", Hour: 7, Job: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	done = make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	require.Eventually(t, func() bool { return clock.sleepers() > 0 }, 2*time.Second, time.Millisecond)
	clock.Set(time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}
	return started, release, done, cancel
}

func TestDrainSchedulerWaitsForRunningJob(t *testing.T) {
	_, release, done, stop := startBlockingJob(t)

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(ev string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}

	drained := make(chan bool, 1)
	go func() {
		ok := drainScheduler(stop, done, 5*time.Second)
		record("store closed")
		drained <- ok
	}()

	// the store stays open while the job is still running
	assert.Never(t, func() bool { return len(drained) > 0 }, 100*time.Millisecond, 5*time.Millisecond)

	record("job returned")
	close(release)
	select {
	case ok := <-drained:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not return after the job finished")
	}
	assert.Equal(t, []string{"job returned", "store closed"}, events)
}

func TestDrainSchedulerGivesUpAfterBudget(t *testing.T) {
	_, release, done, stop := startBlockingJob(t)
	defer close(release)

	assert.False(t, drainScheduler(stop, done, 20*time.Millisecond))
}
