package services

import (
	"context"
	"log"

	"moltbot/internal/models"
)

// Notifier delivers reminder and digest notifications to the owner
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// LogNotifier writes notifications to the process log
type LogNotifier struct{}

// Notify logs n
func (LogNotifier) Notify(_ context.Context, n models.Notification) {
	switch n.Type {
	case models.NotificationReminder:
		log.Printf("⏰ REMINDER: %s", n.Message)
	default:
		log.Printf("📅 %s: %s", n.Type, n.Message)
	}
}

// Notify lets the connection manager act as a Notifier
func (cm *ConnectionManager) Notify(_ context.Context, n models.Notification) {
	cm.Broadcast(n)
}

// MultiNotifier fans a notification out to several notifiers in order
type MultiNotifier []Notifier

// Notify delivers n to every notifier
func (m MultiNotifier) Notify(ctx context.Context, n models.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}
