package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/copilot/internal/metrics"
)

// DefaultInterval is how often the Scheduler scans the Store.
const DefaultInterval = time.Minute

// Sender delivers a text message to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Scheduler periodically fires due reminders through a Sender.
//
// Delivery is attempted at most once per tick. A failed send leaves the
// reminder in the Store, so it is retried on every following tick with no
// backoff and no attempt limit.
type Scheduler struct {
	store    *Store
	sender   Sender
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewScheduler creates a Scheduler. A non-positive interval uses DefaultInterval.
func NewScheduler(store *Store, sender Sender, interval time.Duration, m *metrics.Metrics) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    store,
		sender:   sender,
		interval: interval,
		metrics:  m,
		now:      time.Now,
	}
}

// Run scans the store once per interval until ctx is cancelled.
// The first scan happens immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("reminder scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)

		select {
		case <-ctx.Done():
			slog.Info("reminder scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick fires every reminder due at the current minute and returns how many
// were delivered.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now().Truncate(time.Minute)

	delivered := 0
	for _, r := range s.store.Due(now) {
		if ctx.Err() != nil {
			break
		}
		logger := slog.With("owner_id", r.OwnerID, "reminder_id", r.ID)

		if err := s.sender.SendText(ctx, r.OwnerID, Format(r.Text)); err != nil {
			s.metrics.ReminderFailed()
			logger.Error("reminder delivery failed", "error", err, "due_at", r.DueAt)
			continue
		}

		s.store.Remove(r.OwnerID, r.ID)
		s.metrics.ReminderFired()
		delivered++
		logger.Info("reminder delivered", "due_at", r.DueAt)
	}

	s.metrics.SetPending(s.store.Len())
	return delivered
}

// Format renders the notification text for a fired reminder.
func Format(text string) string {
	return fmt.Sprintf("⏰ Напоминание: %s", text)
}
