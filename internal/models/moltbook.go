package models

import "time"

// MoltbookPost is a feed item as returned by the Moltbook API
type MoltbookPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Submolt   string    `json:"submolt"`
	Author    string    `json:"author,omitempty"`
	Upvotes   int       `json:"upvotes,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// PostResult is the response to creating a post
type PostResult struct {
	PostID string         `json:"post_id"`
	Extra  map[string]any `json:"-"`
}

// CommentResult is the response to commenting on a post
type CommentResult struct {
	CommentID string `json:"comment_id,omitempty"`
	PostID    string `json:"post_id,omitempty"`
}

// Notification types
const (
	NotificationReminder = "reminder"
	NotificationDigest   = "digest"
)

// Notification is pushed to listeners when a reminder fires or a digest is due
type Notification struct {
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	ReminderID string    `json:"reminderId,omitempty"`
	At         time.Time `json:"at"`
}
