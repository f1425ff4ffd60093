package models

import "time"

// DailyStats counts social activity for a single calendar day
type DailyStats struct {
	PostsMade      int       `json:"postsMade"`
	CommentsMade   int       `json:"commentsMade"`
	TasksCompleted int       `json:"tasksCompleted"`
	LastReset      time.Time `json:"lastReset"` // midnight of the day the counters belong to
}

// DayOf truncates t to local midnight in t's location
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
