package models

import (
	"strings"
	"time"
)

// RecurrencePattern is the cadence of a recurring reminder
type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = ""
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

// ParseRecurrencePattern maps text onto a pattern. Empty input stays empty,
// anything unrecognised falls back to daily.
func ParseRecurrencePattern(s string) RecurrencePattern {
	switch RecurrencePattern(strings.ToLower(strings.TrimSpace(s))) {
	case RecurrenceNone:
		return RecurrenceNone
	case RecurrenceWeekly:
		return RecurrenceWeekly
	case RecurrenceMonthly:
		return RecurrenceMonthly
	default:
		return RecurrenceDaily
	}
}

// Next returns the occurrence that follows from. Monthly is a fixed 30 days,
// not a calendar month.
func (p RecurrencePattern) Next(from time.Time) time.Time {
	switch p {
	case RecurrenceWeekly:
		return from.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		return from.AddDate(0, 0, 30)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// Reminder is a message due at a point in time. Once Triggered is set the
// instance is finished; recurrence creates a new Reminder.
type Reminder struct {
	ID          string            `json:"id"`
	Message     string            `json:"message"`
	TriggerTime time.Time         `json:"triggerTime"`
	Recurring   bool              `json:"recurring"`
	Pattern     RecurrencePattern `json:"pattern,omitempty"`
	Triggered   bool              `json:"triggered"`
}

// IsDue reports whether the reminder should fire at now
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.Triggered && !r.TriggerTime.After(now)
}

// CreateReminderRequest is the body accepted by the reminder API
type CreateReminderRequest struct {
	Message     string    `json:"message"`
	TriggerTime time.Time `json:"triggerTime"`
	Recurring   bool      `json:"recurring,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
}
