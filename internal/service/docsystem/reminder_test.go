package docsystem

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptdocs/internal/config"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *fakeNotifier) SendReminders(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func newTestScheduler(n *fakeNotifier, at time.Time) *ReminderScheduler {
	s := NewReminderScheduler(n, config.BusinessHours{Start: 8, End: 18}, 6*time.Hour, 30*time.Minute, discardLogger())
	s.now = func() time.Time { return at }
	return s
}

func TestReminderRunOnce(t *testing.T) {
	ctx := context.Background()
	morning := time.Date(2026, 4, 7, 9, 30, 0, 0, time.UTC)
	night := time.Date(2026, 4, 7, 22, 0, 0, 0, time.UTC)

	t.Run("success waits the long interval", func(t *testing.T) {
		n := &fakeNotifier{}
		assert.Equal(t, 6*time.Hour, newTestScheduler(n, morning).RunOnce(ctx))
		assert.Equal(t, 1, n.count())
	})

	t.Run("failure retries sooner", func(t *testing.T) {
		n := &fakeNotifier{err: errors.New("broker down")}
		assert.Equal(t, 30*time.Minute, newTestScheduler(n, morning).RunOnce(ctx))
		assert.Equal(t, 1, n.count())
	})

	t.Run("outside business hours nothing is sent", func(t *testing.T) {
		n := &fakeNotifier{}
		assert.Equal(t, 30*time.Minute, newTestScheduler(n, night).RunOnce(ctx))
		assert.Zero(t, n.count())
	})
}

func TestReminderRunStopsOnCancel(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(n, time.Date(2026, 4, 7, 10, 0, 0, 0, time.UTC))

	ticks := make(chan time.Time)
	var delays []time.Duration
	var mu sync.Mutex
	s.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return ticks
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ticks <- time.Time{}
	ticks <- time.Time{}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.GreaterOrEqual(t, n.count(), 3)
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, delays)
	assert.Equal(t, 6*time.Hour, delays[0])
}
