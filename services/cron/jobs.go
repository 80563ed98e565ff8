package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/study-scheduler/model"
	"github.com/sahilchouksey/study-scheduler/services"
)

const reminderRetentionDays = 90

// DispatchDueReminders delivers every pending reminder whose fire time has
// passed. Delivery is at-least-once: the reminder is marked sent only after
// the notification channel confirms, so a crash between delivery and
// mark-sent redelivers on the next tick. The stamped delivery id lets the
// channel deduplicate that case.
func (m *CronManager) DispatchDueReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
	defer cancel()

	jobName := "dispatch_due_reminders"

	due, err := m.reminders.DueReminders(ctx, time.Now(), m.cfg.DispatchBatchMax)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to query due reminders: %w", err))
		return
	}

	if len(due) == 0 {
		m.logJobComplete(jobName, "no due reminders")
		return
	}

	sent := 0
	failed := 0
	for i := range due {
		reminder := &due[i]

		deliveryID := uuid.New().String()
		if err := m.reminders.StampDelivery(ctx, reminder.ID, deliveryID); err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to stamp reminder %d: %w", reminder.ID, err))
			continue
		}

		err := m.notifier.Send(ctx, services.Notification{
			DeliveryID:    deliveryID,
			ReminderID:    reminder.ID,
			UserID:        reminder.UserID,
			Title:         reminder.Title,
			Message:       reminder.Message,
			ScheduledTime: reminder.ScheduledTime,
		})
		if err != nil {
			failed++
			if markErr := m.reminders.MarkFailed(ctx, reminder.ID); markErr != nil {
				m.logJobError(jobName, fmt.Errorf("failed to mark reminder %d failed: %w", reminder.ID, markErr))
			}
			continue
		}

		if err := m.reminders.MarkSent(ctx, reminder.ID); err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to mark reminder %d sent: %w", reminder.ID, err))
			continue
		}
		sent++
	}

	m.logJobComplete(jobName, fmt.Sprintf("dispatched %d reminders (%d failed)", sent, failed))
}

// SweepMissedSessions persists the derived missed status for scheduled
// sessions whose end time has passed. Only runs when the sweep is enabled;
// read paths classify missed sessions on the fly either way.
func (m *CronManager) SweepMissedSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "sweep_missed_sessions"
	now := time.Now()
	today := model.NormalizeDate(now)
	clock := now.UTC().Format(model.ClockLayout)

	result := m.db.WithContext(ctx).Model(&model.StudySession{}).
		Where("status = ?", model.ScheduleStatusScheduled).
		Where("scheduled_date < ? OR (scheduled_date = ? AND end_time < ?)", today, today, clock).
		Update("status", model.ScheduleStatusMissed)
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to sweep sessions: %w", result.Error))
		return
	}

	// Their reminders can no longer fire usefully.
	if result.RowsAffected > 0 {
		m.db.WithContext(ctx).Model(&model.StudyReminder{}).
			Where("status = ? AND scheduled_time < ?", model.ReminderStatusPending, now.Add(-24*time.Hour)).
			Update("status", model.ReminderStatusCancelled)
	}

	m.logJobComplete(jobName, fmt.Sprintf("marked %d sessions as missed", result.RowsAffected))
}

// CleanupOldReminders drops cancelled and failed reminders past retention
func (m *CronManager) CleanupOldReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "cleanup_old_reminders"

	deleted, err := m.reminders.CleanupOld(ctx, time.Now().AddDate(0, 0, -reminderRetentionDays))
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("deleted %d old reminders", deleted))
}
