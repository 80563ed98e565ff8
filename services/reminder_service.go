package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sahilchouksey/study-scheduler/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReminderService handles reminder scheduling, the due-reminder query and
// delivery bookkeeping
type ReminderService struct {
	db *gorm.DB
}

// NewReminderService creates a new reminder service
func NewReminderService(db *gorm.DB) *ReminderService {
	return &ReminderService{db: db}
}

// withTx returns a handle whose writes join the given transaction
func (s *ReminderService) withTx(tx *gorm.DB) *ReminderService {
	return &ReminderService{db: tx}
}

func reminderMetadata(session *model.StudySession) (datatypes.JSON, error) {
	meta := model.ReminderMetadata{
		ScheduledDate: session.ScheduledDate.Format("2006-01-02"),
		StartTime:     session.StartTime,
		EndTime:       session.EndTime,
		CourseID:      session.CourseID,
	}
	if session.ComboID != nil {
		meta.ComboID = *session.ComboID
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reminder metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// ScheduleForSession creates a pending reminder firing leadMinutes before the
// session starts. A negative lead or a fire time already in the past is
// rejected rather than fired immediately.
func (s *ReminderService) ScheduleForSession(ctx context.Context, session *model.StudySession, leadMinutes int) (*model.StudyReminder, error) {
	if leadMinutes < 0 {
		return nil, fmt.Errorf("%w: reminder lead minutes must be non-negative, got %d", ErrInvalidArgument, leadMinutes)
	}

	fireAt := session.StartDateTime().Add(-time.Duration(leadMinutes) * time.Minute)
	if fireAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: reminder fire time %s is already in the past", ErrInvalidArgument, fireAt.Format(time.RFC3339))
	}

	meta, err := reminderMetadata(session)
	if err != nil {
		return nil, err
	}

	reminder := &model.StudyReminder{
		ScheduleID:    session.ID,
		UserID:        session.UserID,
		Title:         "Upcoming study session",
		Message:       fmt.Sprintf("Your study session starts at %s on %s", session.StartTime, session.ScheduledDate.Format("2006-01-02")),
		ScheduledTime: fireAt,
		Status:        model.ReminderStatusPending,
		Metadata:      meta,
	}

	if err := s.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return reminder, nil
}

// RescheduleForSession moves a session's still-pending reminder to match the
// session's current date and time. No-op when no pending reminder exists.
func (s *ReminderService) RescheduleForSession(ctx context.Context, session *model.StudySession) error {
	lead := 0
	if session.ReminderMinutesBefore != nil {
		lead = *session.ReminderMinutesBefore
	}
	fireAt := session.StartDateTime().Add(-time.Duration(lead) * time.Minute)

	meta, err := reminderMetadata(session)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&model.StudyReminder{}).
		Where("schedule_id = ? AND status = ?", session.ID, model.ReminderStatusPending).
		Updates(map[string]interface{}{
			"scheduled_time": fireAt,
			"message":        fmt.Sprintf("Your study session starts at %s on %s", session.StartTime, session.ScheduledDate.Format("2006-01-02")),
			"metadata":       meta,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reschedule reminder: %w", result.Error)
	}
	return nil
}

// DueReminders returns pending reminders whose fire time has passed, oldest
// first, capped at limit (0 means no cap).
func (s *ReminderService) DueReminders(ctx context.Context, now time.Time, limit int) ([]model.StudyReminder, error) {
	query := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_time <= ?", model.ReminderStatusPending, now).
		Order("scheduled_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var reminders []model.StudyReminder
	if err := query.Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	return reminders, nil
}

// StampDelivery records the delivery id handed to the notification channel
// before the send attempt, so a crash between send and mark-sent can be
// deduplicated downstream.
func (s *ReminderService) StampDelivery(ctx context.Context, reminderID uint, deliveryID string) error {
	return s.db.WithContext(ctx).Model(&model.StudyReminder{}).
		Where("id = ?", reminderID).
		Update("delivery_id", deliveryID).Error
}

// MarkSent marks a pending reminder as delivered and flips the write-once
// reminder_sent flag on its session. Calling it again is a no-op.
func (s *ReminderService) MarkSent(ctx context.Context, reminderID uint) error {
	result := s.db.WithContext(ctx).Model(&model.StudyReminder{}).
		Where("id = ? AND status = ?", reminderID, model.ReminderStatusPending).
		Update("status", model.ReminderStatusSent)
	if result.Error != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Idempotent: already sent/cancelled is fine, unknown id is not.
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.StudyReminder{}).
			Where("id = ?", reminderID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up reminder: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	}

	var reminder model.StudyReminder
	if err := s.db.WithContext(ctx).First(&reminder, reminderID).Error; err == nil {
		s.db.WithContext(ctx).Model(&model.StudySession{}).
			Where("id = ?", reminder.ScheduleID).
			Update("reminder_sent", true)
	}
	return nil
}

// MarkFailed records a delivery failure
func (s *ReminderService) MarkFailed(ctx context.Context, reminderID uint) error {
	return s.db.WithContext(ctx).Model(&model.StudyReminder{}).
		Where("id = ? AND status = ?", reminderID, model.ReminderStatusPending).
		Update("status", model.ReminderStatusFailed).Error
}

// MarkRead flags a reminder as acknowledged by its owner. Idempotent;
// unknown or foreign-owned ids come back as ErrNotFound.
func (s *ReminderService) MarkRead(ctx context.Context, userID, reminderID uint) error {
	result := s.db.WithContext(ctx).Model(&model.StudyReminder{}).
		Where("id = ? AND user_id = ?", reminderID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark reminder read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.StudyReminder{}).
			Where("id = ? AND user_id = ?", reminderID, userID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up reminder: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// CancelForSession cancels (not deletes) all still-pending reminders of a
// session, excluding them from future due-reminder queries.
func (s *ReminderService) CancelForSession(ctx context.Context, sessionID uint) error {
	return s.db.WithContext(ctx).Model(&model.StudyReminder{}).
		Where("schedule_id = ? AND status = ?", sessionID, model.ReminderStatusPending).
		Update("status", model.ReminderStatusCancelled).Error
}

// ListRemindersOptions represents filters for a user's reminder listing
type ListRemindersOptions struct {
	UnreadOnly bool
	Status     model.ReminderStatus
	Limit      int
	Offset     int
}

// ListByUser retrieves a user's reminders, newest fire time first
func (s *ReminderService) ListByUser(ctx context.Context, userID uint, opts ListRemindersOptions) ([]model.StudyReminder, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.StudyReminder{}).
		Where("user_id = ?", userID)

	if opts.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reminders: %w", err)
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	} else {
		query = query.Limit(50) // Default limit
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var reminders []model.StudyReminder
	if err := query.Order("scheduled_time DESC").Find(&reminders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, total, nil
}

// CleanupOld deletes cancelled and failed reminders older than the retention
// window. Sent reminders are kept as audit history.
func (s *ReminderService) CleanupOld(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("status IN ? AND scheduled_time < ?",
			[]model.ReminderStatus{model.ReminderStatusCancelled, model.ReminderStatusFailed},
			olderThan).
		Delete(&model.StudyReminder{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup reminders: %w", result.Error)
	}
	return result.RowsAffected, nil
}
