package model

import (
	"time"

	"gorm.io/datatypes"
)

// ReminderStatus represents the delivery state of a reminder
type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"
	ReminderStatusSent      ReminderStatus = "sent"
	ReminderStatusFailed    ReminderStatus = "failed"
	ReminderStatusCancelled ReminderStatus = "cancelled"
)

// StudyReminder is a scheduled notification tied to exactly one StudySession.
// It is created alongside the session; a sent reminder outlives a cancelled
// or deleted session for audit purposes.
type StudyReminder struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ScheduleID is a weak reference; UserID is denormalized so the
	// my-reminders query never joins through the session.
	ScheduleID uint `gorm:"not null;index" json:"schedule_id"`
	UserID     uint `gorm:"not null;index" json:"user_id"`

	Title   string `gorm:"type:varchar(255);not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`

	// ScheduledTime is the fire time: session start minus the lead time.
	ScheduledTime time.Time      `gorm:"not null;index" json:"scheduled_time"`
	Status        ReminderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IsRead        bool           `gorm:"default:false" json:"is_read"`

	// DeliveryID is assigned once per dispatch attempt so the notification
	// channel can deduplicate redeliveries after a crash.
	DeliveryID string         `gorm:"type:varchar(40)" json:"delivery_id,omitempty"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// ReminderMetadata captures the session context a notification channel needs
type ReminderMetadata struct {
	ScheduledDate string `json:"scheduled_date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	CourseID      uint   `json:"course_id,omitempty"`
	ComboID       uint   `json:"combo_id,omitempty"`
}

// ReminderResponse represents the API response format for a reminder
type ReminderResponse struct {
	ID            uint           `json:"id"`
	ScheduleID    uint           `json:"schedule_id"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	Status        ReminderStatus `json:"status"`
	IsRead        bool           `json:"is_read"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ToResponse converts a StudyReminder to ReminderResponse
func (r *StudyReminder) ToResponse() ReminderResponse {
	return ReminderResponse{
		ID:            r.ID,
		ScheduleID:    r.ScheduleID,
		Title:         r.Title,
		Message:       r.Message,
		ScheduledTime: r.ScheduledTime,
		Status:        r.Status,
		IsRead:        r.IsRead,
		Metadata:      r.Metadata,
		CreatedAt:     r.CreatedAt,
	}
}
