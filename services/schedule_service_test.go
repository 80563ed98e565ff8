package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sahilchouksey/study-scheduler/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a per-test in-memory SQLite database with all engine
// tables migrated. The DSN is unique per test so parallel tests do not share
// state.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Combo{},
		&model.Course{},
		&model.Lesson{},
		&model.StudySession{},
		&model.StudyReminder{},
		&model.CronJobLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestScheduleService(t *testing.T) (*ScheduleService, *ReminderService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	reminders := NewReminderService(db)
	schedules := NewScheduleService(db, reminders, nil, DefaultScheduleConfig())
	return schedules, reminders, db
}

// futureDate returns a normalized date comfortably in the future so reminder
// fire times are never in the past.
func futureDate(days int) time.Time {
	return model.NormalizeDate(time.Now().AddDate(0, 0, days))
}

func TestCreateSessionValidation(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateSessionRequest
	}{
		{"missing course", CreateSessionRequest{ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00"}},
		{"missing date", CreateSessionRequest{CourseID: 1, StartTime: "10:00", EndTime: "11:00"}},
		{"start after end", CreateSessionRequest{CourseID: 1, ScheduledDate: futureDate(7), StartTime: "12:00", EndTime: "10:00"}},
		{"start equals end", CreateSessionRequest{CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "10:00"}},
		{"bad clock", CreateSessionRequest{CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10am", EndTime: "11:00"}},
	}
	for _, tc := range cases {
		if _, err := schedules.CreateSession(ctx, 1, tc.req); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument, got %v", tc.name, err)
		}
	}
}

func TestCreateSessionConflict(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()
	date := futureDate(7)

	if _, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: date, StartTime: "10:00", EndTime: "11:00",
	}); err != nil {
		t.Fatalf("first session: %v", err)
	}

	// Overlapping range is rejected
	if _, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: date, StartTime: "10:30", EndTime: "11:30",
	}); !errors.Is(err, ErrOverlap) {
		t.Errorf("expected ErrOverlap, got %v", err)
	}

	// Back-to-back is allowed (half-open intervals)
	if _, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: date, StartTime: "11:00", EndTime: "12:00",
	}); err != nil {
		t.Errorf("back-to-back session should not conflict: %v", err)
	}

	// Same range on another date is fine
	if _, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(8), StartTime: "10:00", EndTime: "11:00",
	}); err != nil {
		t.Errorf("other date should not conflict: %v", err)
	}

	// Another user is never affected
	if _, err := schedules.CreateSession(ctx, 2, CreateSessionRequest{
		CourseID: 1, ScheduledDate: date, StartTime: "10:00", EndTime: "11:00",
	}); err != nil {
		t.Errorf("other user should not conflict: %v", err)
	}
}

func TestCancelledSessionsDoNotBlock(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()
	date := futureDate(7)

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: date, StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := schedules.CancelSession(ctx, 1, session.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: date, StartTime: "10:00", EndTime: "11:00",
	}); err != nil {
		t.Errorf("cancelled session should not block the slot: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	started, err := schedules.StartSession(ctx, 1, session.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != model.ScheduleStatusInProgress {
		t.Errorf("expected in_progress, got %s", started.Status)
	}

	// Starting twice is a transition error
	if _, err := schedules.StartSession(ctx, 1, session.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on double start, got %v", err)
	}

	completed, err := schedules.CompleteSession(ctx, 1, session.ID, 85)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != model.ScheduleStatusCompleted {
		t.Errorf("expected completed, got %s", completed.Status)
	}
	if completed.CompletionPercentage != 85 {
		t.Errorf("expected completion 85, got %d", completed.CompletionPercentage)
	}

	// Completed is terminal
	if _, err := schedules.StartSession(ctx, 1, session.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition starting completed, got %v", err)
	}
	if _, err := schedules.CancelSession(ctx, 1, session.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition cancelling completed, got %v", err)
	}
	if _, err := schedules.CompleteSession(ctx, 1, session.ID, 90); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition completing twice, got %v", err)
	}
}

func TestCompleteDirectlyFromScheduled(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// scheduled -> completed without the in_progress step is legal
	if _, err := schedules.CompleteSession(ctx, 1, session.ID, 100); err != nil {
		t.Errorf("complete from scheduled: %v", err)
	}
}

func TestCompletionPercentageBounds(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()

	for i, pct := range []int{-1, 101, 150} {
		session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
			CourseID: 1, ScheduledDate: futureDate(7 + i), StartTime: "10:00", EndTime: "11:00",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := schedules.CompleteSession(ctx, 1, session.ID, pct); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("pct %d: expected ErrInvalidArgument, got %v", pct, err)
		}
	}

	// Boundary values 0 and 100 are legal
	for i, pct := range []int{0, 100} {
		session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
			CourseID: 1, ScheduledDate: futureDate(20 + i), StartTime: "10:00", EndTime: "11:00",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := schedules.CompleteSession(ctx, 1, session.ID, pct); err != nil {
			t.Errorf("pct %d: unexpected error %v", pct, err)
		}
	}
}

func TestUpdateSessionOnlyWhileScheduled(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	goal := "review chapter 3"
	updated, err := schedules.UpdateSession(ctx, 1, session.ID, UpdateSessionRequest{StudyGoal: &goal})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StudyGoal != goal {
		t.Errorf("expected study goal %q, got %q", goal, updated.StudyGoal)
	}

	if _, err := schedules.StartSession(ctx, 1, session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := schedules.UpdateSession(ctx, 1, session.ID, UpdateSessionRequest{StudyGoal: &goal}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition updating in_progress session, got %v", err)
	}
}

func TestUpdateSessionConflictExcludesSelf(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()
	date := futureDate(7)

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: date, StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Shrinking the same slot must not conflict with itself
	newEnd := "10:45"
	updated, err := schedules.UpdateSession(ctx, 1, session.ID, UpdateSessionRequest{EndTime: &newEnd})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DurationMinutes != 45 {
		t.Errorf("expected duration 45, got %d", updated.DurationMinutes)
	}

	// But moving onto a neighbour still conflicts
	if _, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: date, StartTime: "11:00", EndTime: "12:00",
	}); err != nil {
		t.Fatalf("neighbour: %v", err)
	}
	badEnd := "11:30"
	if _, err := schedules.UpdateSession(ctx, 1, session.ID, UpdateSessionRequest{EndTime: &badEnd}); !errors.Is(err, ErrOverlap) {
		t.Errorf("expected ErrOverlap, got %v", err)
	}
}

func TestGetSessionOwnershipScoping(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Foreign-owned and unknown ids are indistinguishable
	if _, err := schedules.GetSession(ctx, 2, session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if _, err := schedules.GetSession(ctx, 1, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestCancelSessionCascadesToReminder(t *testing.T) {
	schedules, _, db := newTestScheduleService(t)
	ctx := context.Background()

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
		ReminderEnabled: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := schedules.CancelSession(ctx, 1, session.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var reminder model.StudyReminder
	if err := db.Where("schedule_id = ?", session.ID).First(&reminder).Error; err != nil {
		t.Fatalf("load reminder: %v", err)
	}
	if reminder.Status != model.ReminderStatusCancelled {
		t.Errorf("expected cancelled reminder, got %s", reminder.Status)
	}
}

func TestDeleteSessionKeepsSentReminders(t *testing.T) {
	schedules, reminders, db := newTestScheduleService(t)
	ctx := context.Background()

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
		ReminderEnabled: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var reminder model.StudyReminder
	if err := db.Where("schedule_id = ?", session.ID).First(&reminder).Error; err != nil {
		t.Fatalf("load reminder: %v", err)
	}
	if err := reminders.MarkSent(ctx, reminder.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	if err := schedules.DeleteSession(ctx, 1, session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var sessionCount int64
	db.Model(&model.StudySession{}).Where("id = ?", session.ID).Count(&sessionCount)
	if sessionCount != 0 {
		t.Error("session should be deleted")
	}

	// Delivered reminders survive as history
	var reminderCount int64
	db.Model(&model.StudyReminder{}).Where("id = ?", reminder.ID).Count(&reminderCount)
	if reminderCount != 1 {
		t.Error("sent reminder should be kept")
	}
}

func TestDeleteSessionRemovesPendingReminders(t *testing.T) {
	schedules, _, db := newTestScheduleService(t)
	ctx := context.Background()

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
		ReminderEnabled: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := schedules.DeleteSession(ctx, 1, session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var reminderCount int64
	db.Model(&model.StudyReminder{}).Where("schedule_id = ?", session.ID).Count(&reminderCount)
	if reminderCount != 0 {
		t.Error("pending reminder should be deleted with its session")
	}
}

func TestListSessionsFilters(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()
	date := futureDate(7)

	comboA := uint(1)
	for i, req := range []CreateSessionRequest{
		{CourseID: 1, ComboID: &comboA, ScheduledDate: date, StartTime: "10:00", EndTime: "11:00"},
		{CourseID: 2, ScheduledDate: date, StartTime: "12:00", EndTime: "13:00"},
		{CourseID: 1, ScheduledDate: futureDate(8), StartTime: "10:00", EndTime: "11:00"},
	} {
		if _, err := schedules.CreateSession(ctx, 1, req); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	byDate, err := schedules.ListSessions(ctx, 1, ListSessionsOptions{Date: &date})
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(byDate) != 2 {
		t.Errorf("expected 2 sessions on date, got %d", len(byDate))
	}
	// Ordered by start time within the date
	if len(byDate) == 2 && byDate[0].StartTime > byDate[1].StartTime {
		t.Error("sessions not ordered by start time")
	}

	byCombo, err := schedules.ListSessions(ctx, 1, ListSessionsOptions{ComboID: &comboA})
	if err != nil {
		t.Fatalf("list by combo: %v", err)
	}
	if len(byCombo) != 1 {
		t.Errorf("expected 1 combo session, got %d", len(byCombo))
	}

	courseID := uint(1)
	byCourse, err := schedules.ListSessions(ctx, 1, ListSessionsOptions{CourseID: &courseID})
	if err != nil {
		t.Fatalf("list by course: %v", err)
	}
	if len(byCourse) != 2 {
		t.Errorf("expected 2 course sessions, got %d", len(byCourse))
	}
}

func TestCreateSessionReminderRejectionLeavesNoRow(t *testing.T) {
	schedules, _, db := newTestScheduleService(t)
	ctx := context.Background()

	yesterday := model.NormalizeDate(time.Now().AddDate(0, 0, -1))
	lead := 30
	_, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: yesterday, StartTime: "10:00", EndTime: "11:00",
		ReminderEnabled: true, ReminderMinutesBefore: &lead,
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for past reminder fire time, got %v", err)
	}

	// The rejection rolls the insert back
	var sessionCount, reminderCount int64
	db.Model(&model.StudySession{}).Count(&sessionCount)
	db.Model(&model.StudyReminder{}).Count(&reminderCount)
	if sessionCount != 0 {
		t.Errorf("expected no persisted session after rejected create, got %d", sessionCount)
	}
	if reminderCount != 0 {
		t.Errorf("expected no persisted reminder after rejected create, got %d", reminderCount)
	}

	// A corrected retry for the same slot must not collide with leftovers
	if _, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: yesterday, StartTime: "10:00", EndTime: "11:00",
	}); err != nil {
		t.Errorf("retry without reminder should succeed: %v", err)
	}
}

func TestListSessionsStatusFilterUsesDerivedStatus(t *testing.T) {
	schedules, _, _ := newTestScheduleService(t)
	ctx := context.Background()

	// Stored as scheduled but already past its end time, so it reads as missed
	past, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: model.NormalizeDate(time.Now().AddDate(0, 0, -1)),
		StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create past: %v", err)
	}
	upcoming, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create upcoming: %v", err)
	}
	done, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(8), StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create done: %v", err)
	}
	if _, err := schedules.CompleteSession(ctx, 1, done.ID, 100); err != nil {
		t.Fatalf("complete: %v", err)
	}

	missed, err := schedules.ListSessions(ctx, 1, ListSessionsOptions{Status: model.ScheduleStatusMissed})
	if err != nil {
		t.Fatalf("list missed: %v", err)
	}
	if len(missed) != 1 || missed[0].ID != past.ID {
		t.Errorf("expected only the past session as missed, got %d", len(missed))
	}

	scheduled, err := schedules.ListSessions(ctx, 1, ListSessionsOptions{Status: model.ScheduleStatusScheduled})
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(scheduled) != 1 || scheduled[0].ID != upcoming.ID {
		t.Errorf("expected only the upcoming session as scheduled, got %d", len(scheduled))
	}

	completed, err := schedules.ListSessions(ctx, 1, ListSessionsOptions{Status: model.ScheduleStatusCompleted})
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != done.ID {
		t.Errorf("expected only the completed session, got %d", len(completed))
	}
}

func TestGuardedUpdateDetectsConcurrentModification(t *testing.T) {
	schedules, _, db := newTestScheduleService(t)
	ctx := context.Background()

	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stale, err := schedules.GetSession(ctx, 1, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Another writer touches the row after our read, bumping updated_at
	if err := db.Model(&model.StudySession{}).Where("id = ?", session.ID).
		Update("notes", "edited elsewhere").Error; err != nil {
		t.Fatalf("concurrent write: %v", err)
	}

	err = schedules.guardedUpdate(ctx, stale, map[string]interface{}{
		"status": model.ScheduleStatusInProgress,
	})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification for stale read, got %v", err)
	}

	// A fresh read goes through
	fresh, err := schedules.GetSession(ctx, 1, session.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := schedules.guardedUpdate(ctx, fresh, map[string]interface{}{
		"status": model.ScheduleStatusInProgress,
	}); err != nil {
		t.Errorf("fresh update should succeed: %v", err)
	}
}

// fakeLocker stands in for the redis mutex so lock contention can be
// simulated without a server.
type fakeLocker struct {
	held     map[string]string
	releases int
}

func (f *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.held == nil {
		f.held = map[string]string{}
	}
	if _, ok := f.held[key]; ok {
		return "", nil
	}
	f.held[key] = "token"
	return "token", nil
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, key, token string) error {
	delete(f.held, key)
	f.releases++
	return nil
}

func TestPerUserLockSerializesWrites(t *testing.T) {
	schedules, _, db := newTestScheduleService(t)
	locker := &fakeLocker{held: map[string]string{"scheduler:sessions:user:1": "other"}}
	schedules.locks = locker
	ctx := context.Background()

	// A held lock turns the write into a retryable conflict with no row
	if _, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	}); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification while lock held, got %v", err)
	}
	var count int64
	db.Model(&model.StudySession{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no session while lock held, got %d", count)
	}

	// Other users are not blocked
	if _, err := schedules.CreateSession(ctx, 2, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	}); err != nil {
		t.Fatalf("other user should not contend: %v", err)
	}

	delete(locker.held, "scheduler:sessions:user:1")
	session, err := schedules.CreateSession(ctx, 1, CreateSessionRequest{
		CourseID: 1, ScheduledDate: futureDate(7), StartTime: "10:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("create after release: %v", err)
	}
	if locker.releases == 0 {
		t.Error("lock should be released after the write")
	}

	// Date or time changes on update take the same lock
	locker.held["scheduler:sessions:user:1"] = "other"
	newStart := "12:00"
	newEnd := "13:00"
	if _, err := schedules.UpdateSession(ctx, 1, session.ID, UpdateSessionRequest{
		StartTime: &newStart, EndTime: &newEnd,
	}); !errors.Is(err, ErrConcurrentModification) {
		t.Errorf("expected ErrConcurrentModification for time change while lock held, got %v", err)
	}

	// Edits that keep the slot do not contend
	goal := "review chapter 3"
	if _, err := schedules.UpdateSession(ctx, 1, session.ID, UpdateSessionRequest{StudyGoal: &goal}); err != nil {
		t.Errorf("non-time update should not contend: %v", err)
	}
}

func TestWeekStart(t *testing.T) {
	// 2026-01-07 is a Wednesday; its week starts Monday 2026-01-05
	wednesday := time.Date(2026, 1, 7, 13, 0, 0, 0, time.UTC)
	if got := WeekStart(wednesday, 0); !got.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected 2026-01-05, got %s", got.Format("2006-01-02"))
	}

	// A Monday is its own week start
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := WeekStart(monday, 0); !got.Equal(monday) {
		t.Errorf("expected 2026-01-05, got %s", got.Format("2006-01-02"))
	}

	// Sunday belongs to the week that started six days earlier
	sunday := time.Date(2026, 1, 11, 23, 0, 0, 0, time.UTC)
	if got := WeekStart(sunday, 0); !got.Equal(monday) {
		t.Errorf("expected 2026-01-05, got %s", got.Format("2006-01-02"))
	}

	if got := WeekStart(wednesday, 1); !got.Equal(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected 2026-01-12, got %s", got.Format("2006-01-02"))
	}
	if got := WeekStart(wednesday, -1); !got.Equal(time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected 2025-12-29, got %s", got.Format("2006-01-02"))
	}
}
