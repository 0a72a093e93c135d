package docsystem

import (
	"context"
	"log/slog"
	"time"

	"deptdocs/internal/config"
	"deptdocs/internal/domain/notify"
	"deptdocs/internal/metrics"
)

// ReminderScheduler periodically asks the notifier to send meeting reminders.
// It runs on its own goroutine and shares no state with request handling.
type ReminderScheduler struct {
	notifier notify.Notifier
	hours    config.BusinessHours
	interval time.Duration // after a successful send
	retry    time.Duration // after a failure or outside business hours
	logger   *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewReminderScheduler creates a scheduler
func NewReminderScheduler(notifier notify.Notifier, hours config.BusinessHours, interval, retry time.Duration, logger *slog.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		notifier: notifier,
		hours:    hours,
		interval: interval,
		retry:    retry,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
	}
}

// RunOnce makes a single attempt and returns the delay before the next one
func (s *ReminderScheduler) RunOnce(ctx context.Context) time.Duration {
	// outside the window, check back after the short delay so the opening is not missed
	if !s.hours.Contains(s.now()) {
		metrics.RemindersTotal.WithLabelValues("skipped").Inc()
		s.logger.Debug("outside business hours, reminders skipped")
		return s.retry
	}

	if err := s.notifier.SendReminders(ctx); err != nil {
		metrics.RemindersTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("sending reminders failed", "error", err, "retry_in", s.retry)
		return s.retry
	}

	metrics.RemindersTotal.WithLabelValues("sent").Inc()
	s.logger.Info("reminders sent", "next_in", s.interval)
	return s.interval
}

// Run loops until ctx is cancelled
func (s *ReminderScheduler) Run(ctx context.Context) error {
	s.logger.Info("reminder scheduler started",
		"interval", s.interval,
		"retry", s.retry,
		"business_hours_start", s.hours.Start,
		"business_hours_end", s.hours.End,
	)
	for {
		delay := s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return ctx.Err()
		case <-s.after(delay):
		}
	}
}
