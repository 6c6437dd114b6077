// Package reminder holds pending reminders in memory and fires them when due.
//
// The Store is shared between message handlers (which add reminders) and the
// Scheduler (which scans and removes them), so every read-modify-write is
// done under one mutex. Nothing is persisted: a restart drops all reminders.
package reminder

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/copilot/internal/message"
)

// Store maps an owner to the reminders they asked for.
type Store struct {
	mu      sync.Mutex
	byOwner map[int64][]message.Reminder
	now     func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byOwner: make(map[int64][]message.Reminder),
		now:     time.Now,
	}
}

// Add appends a reminder to the owner's list, creating the list if absent.
func (s *Store) Add(owner int64, dueAt time.Time, text string) message.Reminder {
	r := message.Reminder{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		DueAt:     dueAt,
		Text:      text,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.byOwner[owner] = append(s.byOwner[owner], r)
	s.mu.Unlock()
	return r
}

// Due returns every reminder with DueAt <= now across all owners.
// Nothing is removed; the caller removes entries after delivery.
func (s *Store) Due(now time.Time) []message.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []message.Reminder
	for _, list := range s.byOwner {
		for _, r := range list {
			if !r.DueAt.After(now) {
				due = append(due, r)
			}
		}
	}
	return due
}

// Remove deletes the reminder with the given ID from the owner's list.
// It reports whether an entry was removed.
func (s *Store) Remove(owner int64, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byOwner[owner]
	for i, r := range list {
		if r.ID != id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(s.byOwner, owner)
		} else {
			s.byOwner[owner] = list
		}
		return true
	}
	return false
}

// List returns a copy of the owner's pending reminders.
func (s *Store) List(owner int64) []message.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byOwner[owner]
	out := make([]message.Reminder, len(list))
	copy(out, list)
	return out
}

// Len returns the number of pending reminders across all owners.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, list := range s.byOwner {
		n += len(list)
	}
	return n
}
