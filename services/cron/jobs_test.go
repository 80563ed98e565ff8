package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/study-scheduler/model"
	"github.com/sahilchouksey/study-scheduler/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingNotifier captures sent notifications; fails when failAll is set
type recordingNotifier struct {
	mu      sync.Mutex
	sent    []services.Notification
	failAll bool
}

func (n *recordingNotifier) Send(ctx context.Context, notification services.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll {
		return errors.New("channel unavailable")
	}
	n.sent = append(n.sent, notification)
	return nil
}

func setupCronTest(t *testing.T, notifier services.Notifier) (*CronManager, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&model.Combo{},
		&model.Course{},
		&model.StudySession{},
		&model.StudyReminder{},
		&model.CronJobLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	reminders := services.NewReminderService(db)
	manager := NewCronManager(db, reminders, notifier, Config{
		SweepEnabled:     true,
		DispatchBatchMax: 100,
	})
	return manager, db
}

func TestDispatchDueReminders(t *testing.T) {
	notifier := &recordingNotifier{}
	manager, db := setupCronTest(t, notifier)
	now := time.Now()

	due := model.StudyReminder{
		ScheduleID: 1, UserID: 1, Title: "due",
		ScheduledTime: now.Add(-time.Minute), Status: model.ReminderStatusPending,
	}
	future := model.StudyReminder{
		ScheduleID: 2, UserID: 1, Title: "future",
		ScheduledTime: now.Add(time.Hour), Status: model.ReminderStatusPending,
	}
	for _, r := range []*model.StudyReminder{&due, &future} {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed reminder: %v", err)
		}
	}

	manager.DispatchDueReminders()

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if notifier.sent[0].ReminderID != due.ID {
		t.Errorf("expected reminder %d dispatched, got %d", due.ID, notifier.sent[0].ReminderID)
	}
	if notifier.sent[0].DeliveryID == "" {
		t.Error("expected a delivery id on the notification")
	}

	var delivered model.StudyReminder
	if err := db.First(&delivered, due.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if delivered.Status != model.ReminderStatusSent {
		t.Errorf("expected sent, got %s", delivered.Status)
	}
	if delivered.DeliveryID != notifier.sent[0].DeliveryID {
		t.Error("stamped delivery id does not match the dispatched one")
	}

	var untouched model.StudyReminder
	if err := db.First(&untouched, future.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if untouched.Status != model.ReminderStatusPending {
		t.Errorf("future reminder should stay pending, got %s", untouched.Status)
	}
}

func TestDispatchDueRemindersMarksFailures(t *testing.T) {
	notifier := &recordingNotifier{failAll: true}
	manager, db := setupCronTest(t, notifier)

	due := model.StudyReminder{
		ScheduleID: 1, UserID: 1, Title: "due",
		ScheduledTime: time.Now().Add(-time.Minute), Status: model.ReminderStatusPending,
	}
	if err := db.Create(&due).Error; err != nil {
		t.Fatalf("seed reminder: %v", err)
	}

	manager.DispatchDueReminders()

	var loaded model.StudyReminder
	if err := db.First(&loaded, due.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Status != model.ReminderStatusFailed {
		t.Errorf("expected failed, got %s", loaded.Status)
	}
}

func TestSweepMissedSessions(t *testing.T) {
	manager, db := setupCronTest(t, &recordingNotifier{})
	yesterday := model.NormalizeDate(time.Now().AddDate(0, 0, -1))
	nextWeek := model.NormalizeDate(time.Now().AddDate(0, 0, 7))

	pastScheduled := model.StudySession{
		UserID: 1, CourseID: 1, ScheduledDate: yesterday,
		StartTime: "10:00", EndTime: "11:00", DurationMinutes: 60,
		Status: model.ScheduleStatusScheduled,
	}
	pastCompleted := model.StudySession{
		UserID: 1, CourseID: 1, ScheduledDate: yesterday,
		StartTime: "12:00", EndTime: "13:00", DurationMinutes: 60,
		Status: model.ScheduleStatusCompleted, CompletionPercentage: 100,
	}
	futureScheduled := model.StudySession{
		UserID: 1, CourseID: 1, ScheduledDate: nextWeek,
		StartTime: "10:00", EndTime: "11:00", DurationMinutes: 60,
		Status: model.ScheduleStatusScheduled,
	}
	for _, s := range []*model.StudySession{&pastScheduled, &pastCompleted, &futureScheduled} {
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}

	manager.SweepMissedSessions()

	var swept model.StudySession
	if err := db.First(&swept, pastScheduled.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if swept.Status != model.ScheduleStatusMissed {
		t.Errorf("expected missed, got %s", swept.Status)
	}

	var completed model.StudySession
	if err := db.First(&completed, pastCompleted.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if completed.Status != model.ScheduleStatusCompleted {
		t.Errorf("completed session must not be swept, got %s", completed.Status)
	}

	var future model.StudySession
	if err := db.First(&future, futureScheduled.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if future.Status != model.ScheduleStatusScheduled {
		t.Errorf("future session must stay scheduled, got %s", future.Status)
	}
}

func TestCleanupOldReminders(t *testing.T) {
	manager, db := setupCronTest(t, &recordingNotifier{})
	old := time.Now().AddDate(0, 0, -(reminderRetentionDays + 10))

	rows := []model.StudyReminder{
		{ScheduleID: 1, UserID: 1, Title: "old cancelled", ScheduledTime: old, Status: model.ReminderStatusCancelled},
		{ScheduleID: 1, UserID: 1, Title: "old sent", ScheduledTime: old, Status: model.ReminderStatusSent},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed reminder: %v", err)
		}
	}

	manager.CleanupOldReminders()

	var remaining []model.StudyReminder
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Title != "old sent" {
		t.Errorf("expected only the sent reminder to survive, got %d", len(remaining))
	}
}
