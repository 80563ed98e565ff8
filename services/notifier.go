package services

import (
	"context"
	"log"
	"time"
)

// Notification is the payload handed to the external notification channel
type Notification struct {
	DeliveryID    string    `json:"delivery_id"`
	ReminderID    uint      `json:"reminder_id"`
	UserID        uint      `json:"user_id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// Notifier delivers reminder notifications. The real channel (push, email,
// in-app) lives in the outer platform; the engine only needs the contract.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the application log. Used as the
// default channel and in tests.
type LogNotifier struct{}

// NewLogNotifier creates a new log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send logs the notification
func (n *LogNotifier) Send(ctx context.Context, notification Notification) error {
	log.Printf("[NOTIFY] delivery=%s user=%d reminder=%d: %s - %s",
		notification.DeliveryID, notification.UserID, notification.ReminderID,
		notification.Title, notification.Message)
	return nil
}
