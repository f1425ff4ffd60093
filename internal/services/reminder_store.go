package services

import (
	"sort"
	"sync"
	"time"

	"moltbot/internal/models"

	"github.com/google/uuid"
)

// ReminderRepository is the narrow surface the router and heartbeat need from a reminder store
type ReminderRepository interface {
	Add(message string, triggerTime time.Time, recurring bool, pattern models.RecurrencePattern) *models.Reminder
	Sweep(now time.Time) []models.Reminder
	Active() []models.Reminder
	Get(id string) (models.Reminder, bool)
	List() []models.Reminder
}

// ReminderStore keeps reminders in memory and fires them
type ReminderStore struct {
	mu        sync.RWMutex
	reminders []*models.Reminder
	index     map[string]*models.Reminder
}

// NewReminderStore creates an empty reminder store
func NewReminderStore() *ReminderStore {
	return &ReminderStore{
		index: make(map[string]*models.Reminder),
	}
}

// Add creates an untriggered reminder. A recurring reminder without a pattern recurs daily.
func (s *ReminderStore) Add(message string, triggerTime time.Time, recurring bool, pattern models.RecurrencePattern) *models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *s.insertLocked(message, triggerTime, recurring, pattern)
	return &out
}

func (s *ReminderStore) insertLocked(message string, triggerTime time.Time, recurring bool, pattern models.RecurrencePattern) *models.Reminder {
	if recurring && pattern == models.RecurrenceNone {
		pattern = models.RecurrenceDaily
	}
	if !recurring {
		pattern = models.RecurrenceNone
	}

	r := &models.Reminder{
		ID:          "rem_" + uuid.New().String(),
		Message:     message,
		TriggerTime: triggerTime,
		Recurring:   recurring,
		Pattern:     pattern,
	}
	s.reminders = append(s.reminders, r)
	s.index[r.ID] = r
	return r
}

// Sweep fires every untriggered reminder due at now and returns them in
// insertion order. Recurring reminders get a successor scheduled from their
// own trigger time; successors are only considered by later sweeps.
func (s *ReminderStore) Sweep(now time.Time) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fired []models.Reminder
	var successors []*models.Reminder

	for _, r := range s.reminders {
		if !r.IsDue(now) {
			continue
		}
		r.Triggered = true
		fired = append(fired, *r)

		if r.Recurring {
			successors = append(successors, &models.Reminder{
				Message:     r.Message,
				TriggerTime: r.Pattern.Next(r.TriggerTime),
				Recurring:   true,
				Pattern:     r.Pattern,
			})
		}
	}

	for _, next := range successors {
		s.insertLocked(next.Message, next.TriggerTime, true, next.Pattern)
	}

	return fired
}

// Active returns untriggered reminders ordered by trigger time
func (s *ReminderStore) Active() []models.Reminder {
	s.mu.RLock()
	var out []models.Reminder
	for _, r := range s.reminders {
		if !r.Triggered {
			out = append(out, *r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TriggerTime.Before(out[j].TriggerTime)
	})
	return out
}

// Get returns a copy of a reminder
func (s *ReminderStore) Get(id string) (models.Reminder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.index[id]
	if !ok {
		return models.Reminder{}, false
	}
	return *r, true
}

// List returns copies of all reminders, fired or not, in insertion order
func (s *ReminderStore) List() []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Reminder, len(s.reminders))
	for i, r := range s.reminders {
		out[i] = *r
	}
	return out
}
