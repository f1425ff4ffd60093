package services

import (
	"fmt"
	"sync"
	"time"

	"moltbot/internal/models"
)

// QuotaAction names a quota-limited social action
type QuotaAction string

const (
	QuotaPost    QuotaAction = "post"
	QuotaComment QuotaAction = "comment"
)

// QuotaExceededError is returned when today's allowance for an action is used up
type QuotaExceededError struct {
	Action  QuotaAction `json:"action"`
	Limit   int         `json:"limit"`
	Used    int         `json:"used"`
	ResetAt time.Time   `json:"reset_at"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily %s limit reached (%d/%d), resets at %s",
		e.Action, e.Used, e.Limit, e.ResetAt.Format("Jan 2 15:04"))
}

// QuotaService owns the DailyStats counters. Every read and reservation
// first reconciles the counters against the calendar day of now.
type QuotaService struct {
	mu          sync.Mutex
	stats       models.DailyStats
	maxPosts    int
	maxComments int
}

// NewQuotaService starts counting on the day of now
func NewQuotaService(maxPosts, maxComments int, now time.Time) *QuotaService {
	return &QuotaService{
		stats:       models.DailyStats{LastReset: models.DayOf(now)},
		maxPosts:    maxPosts,
		maxComments: maxComments,
	}
}

// Reconcile zeroes the counters if now falls on a different day than the last reset
func (q *QuotaService) Reconcile(now time.Time) models.DailyStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reconcileLocked(now)
	return q.stats
}

func (q *QuotaService) reconcileLocked(now time.Time) {
	today := models.DayOf(now)
	if !today.Equal(q.stats.LastReset) {
		q.stats = models.DailyStats{LastReset: today}
	}
}

// CanPost reports whether another post fits in today's allowance
func (q *QuotaService) CanPost(now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reconcileLocked(now)
	return q.stats.PostsMade < q.maxPosts
}

// ReservePost claims a post slot before the outbound call
func (q *QuotaService) ReservePost(now time.Time) (*Reservation, error) {
	return q.reserve(QuotaPost, now)
}

// ReserveComment claims a comment slot before the outbound call
func (q *QuotaService) ReserveComment(now time.Time) (*Reservation, error) {
	return q.reserve(QuotaComment, now)
}

func (q *QuotaService) reserve(action QuotaAction, now time.Time) (*Reservation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reconcileLocked(now)

	counter, limit := q.counterLocked(action)
	if *counter >= limit {
		return nil, &QuotaExceededError{
			Action:  action,
			Limit:   limit,
			Used:    *counter,
			ResetAt: q.stats.LastReset.AddDate(0, 0, 1),
		}
	}
	*counter++

	return &Reservation{quota: q, action: action, day: q.stats.LastReset}, nil
}

func (q *QuotaService) counterLocked(action QuotaAction) (*int, int) {
	if action == QuotaPost {
		return &q.stats.PostsMade, q.maxPosts
	}
	return &q.stats.CommentsMade, q.maxComments
}

// RecordTaskCompleted bumps the completed-tasks counter for today
func (q *QuotaService) RecordTaskCompleted(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reconcileLocked(now)
	q.stats.TasksCompleted++
}

// Limits returns the configured daily maximums
func (q *QuotaService) Limits() (posts, comments int) {
	return q.maxPosts, q.maxComments
}

// Reservation is a claimed quota slot. Release hands it back when the action failed.
type Reservation struct {
	quota    *QuotaService
	action   QuotaAction
	day      time.Time
	released bool
}

// Release returns the slot. It is a no-op once the day has rolled over,
// since the counters it was taken from no longer exist.
func (r *Reservation) Release() {
	if r == nil {
		return
	}
	q := r.quota
	q.mu.Lock()
	defer q.mu.Unlock()

	if r.released || !q.stats.LastReset.Equal(r.day) {
		return
	}
	r.released = true

	counter, _ := q.counterLocked(r.action)
	if *counter > 0 {
		*counter--
	}
}
