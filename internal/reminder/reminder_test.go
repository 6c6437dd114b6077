package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/copilot/internal/message"
	"github.com/nadzzz/copilot/internal/metrics"
)

var t0 = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func TestStore_AddDueRemove(t *testing.T) {
	s := NewStore()

	past := s.Add(1, t0.Add(-time.Hour), "past")
	exact := s.Add(1, t0, "exact")
	future := s.Add(2, t0.Add(time.Minute), "future")

	due := s.Due(t0)
	ids := reminderIDs(due)
	assert.ElementsMatch(t, []string{past.ID, exact.ID}, ids)
	assert.Equal(t, 3, s.Len(), "Due does not remove")

	assert.True(t, s.Remove(1, past.ID))
	assert.False(t, s.Remove(1, past.ID), "second removal is a no-op")
	assert.False(t, s.Remove(2, exact.ID), "owner must match")

	assert.Len(t, s.List(1), 1)
	assert.Equal(t, []message.Reminder{future}, s.List(2))
	assert.Empty(t, s.List(3))
}

func TestStore_RemoveLastDropsOwner(t *testing.T) {
	s := NewStore()
	r := s.Add(7, t0, "x")
	require.True(t, s.Remove(7, r.ID))

	s.mu.Lock()
	_, ok := s.byOwner[7]
	s.mu.Unlock()
	assert.False(t, ok)
}

func TestStore_ListIsCopy(t *testing.T) {
	s := NewStore()
	s.Add(1, t0, "original")

	list := s.List(1)
	list[0].Text = "mutated"

	assert.Equal(t, "original", s.List(1)[0].Text)
}

func TestStore_ConcurrentAddAndScan(t *testing.T) {
	s := NewStore()
	const (
		owners   = 8
		perOwner = 200
	)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fired    = make(map[string]int)
		stopScan = make(chan struct{})
	)

	// Scanner: repeatedly takes everything due and removes it.
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		for {
			for _, r := range s.Due(t0) {
				if s.Remove(r.OwnerID, r.ID) {
					mu.Lock()
					fired[r.ID]++
					mu.Unlock()
				}
			}
			select {
			case <-stopScan:
				return
			default:
			}
		}
	}()

	for o := 0; o < owners; o++ {
		wg.Add(1)
		go func(owner int64) {
			defer wg.Done()
			for i := 0; i < perOwner; i++ {
				s.Add(owner, t0.Add(-time.Second), "due")
				s.Add(owner, t0.Add(time.Hour), "later")
			}
		}(int64(o))
	}
	wg.Wait()
	close(stopScan)
	<-scanDone

	// Drain whatever the scanner had not reached yet.
	for _, r := range s.Due(t0) {
		if s.Remove(r.OwnerID, r.ID) {
			fired[r.ID]++
		}
	}

	assert.Len(t, fired, owners*perOwner, "every due reminder fired")
	for id, n := range fired {
		assert.Equal(t, 1, n, "reminder %s fired more than once", id)
	}
	assert.Equal(t, owners*perOwner, s.Len(), "future reminders untouched")
	assert.Empty(t, s.Due(t0))
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []sentText
	fail  map[int64]bool
	calls int
}

type sentText struct {
	chatID int64
	text   string
}

func (r *recordingSender) SendText(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail[chatID] {
		return errors.New("chat not found")
	}
	r.sent = append(r.sent, sentText{chatID: chatID, text: text})
	return nil
}

func newTestScheduler(s *Store, sender Sender, now time.Time) (*Scheduler, *metrics.Metrics) {
	m := metrics.MustNew(prometheus.NewRegistry())
	sch := NewScheduler(s, sender, time.Minute, m)
	sch.now = func() time.Time { return now }
	return sch, m
}

func TestScheduler_TickDeliversDueAndRemoves(t *testing.T) {
	s := NewStore()
	s.Add(1, t0, "позвонить маме")
	s.Add(1, t0.Add(2*time.Minute), "later")
	s.Add(2, t0.Add(-24*time.Hour), "missed yesterday")

	sender := &recordingSender{}
	// 12:00:45 truncates to 12:00, so the 12:00 reminder is due.
	sch, _ := newTestScheduler(s, sender, t0.Add(45*time.Second))

	n := sch.Tick(context.Background())
	assert.Equal(t, 2, n)

	sort.Slice(sender.sent, func(i, j int) bool { return sender.sent[i].chatID < sender.sent[j].chatID })
	assert.Equal(t, []sentText{
		{chatID: 1, text: "⏰ Напоминание: позвонить маме"},
		{chatID: 2, text: "⏰ Напоминание: missed yesterday"},
	}, sender.sent)
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_FailedDeliveryIsRetried(t *testing.T) {
	s := NewStore()
	s.Add(9, t0, "unreachable")

	sender := &recordingSender{fail: map[int64]bool{9: true}}
	sch, _ := newTestScheduler(s, sender, t0)

	assert.Equal(t, 0, sch.Tick(context.Background()))
	assert.Equal(t, 0, sch.Tick(context.Background()))
	assert.Equal(t, 2, sender.calls, "retried on every tick")
	assert.Equal(t, 1, s.Len(), "reminder kept after failure")

	sender.fail[9] = false
	assert.Equal(t, 1, sch.Tick(context.Background()))
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s := NewStore()
	s.Add(1, t0, "now")

	sender := &recordingSender{}
	sch, _ := newTestScheduler(s, sender, t0)
	sch.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sch.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	sch := NewScheduler(NewStore(), &recordingSender{}, 0, nil)
	assert.Equal(t, DefaultInterval, sch.interval)
}

func reminderIDs(rs []message.Reminder) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}
