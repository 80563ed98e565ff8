package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/study-scheduler/model"
	"github.com/sahilchouksey/study-scheduler/utils/cache"
	"gorm.io/gorm"
)

// sessionLockTTL bounds how long a single check-then-insert window may hold
// the per-user lock.
const sessionLockTTL = 5 * time.Second

// userLocker is the slice of the redis cache the write paths need to
// serialize per-user check-then-insert windows.
type userLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// ScheduleConfig holds the policy knobs of the scheduling engine
type ScheduleConfig struct {
	MaxWeeks               int  // upper bound for bulk generation
	DefaultLeadMinutes     int  // reminder lead time when the caller supplies none
	AllowCrossComboOverlap bool // when true, sessions of different combos may share time
}

// DefaultScheduleConfig returns the stock engine policy
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		MaxWeeks:               52,
		DefaultLeadMinutes:     30,
		AllowCrossComboOverlap: false,
	}
}

// ScheduleService owns study session CRUD, the conflict checker and the
// session lifecycle state machine
type ScheduleService struct {
	db        *gorm.DB
	reminders *ReminderService
	locks     userLocker // optional; nil disables cross-instance locking
	cfg       ScheduleConfig
}

// NewScheduleService creates a new schedule service
func NewScheduleService(db *gorm.DB, reminders *ReminderService, locks *cache.RedisCache, cfg ScheduleConfig) *ScheduleService {
	s := &ScheduleService{
		db:        db,
		reminders: reminders,
		cfg:       cfg,
	}
	if locks != nil {
		s.locks = locks
	}
	return s
}

// lockUser serializes conflict-check-then-insert windows for one user across
// instances. The returned release func is never nil. A redis outage degrades
// to running without the lock rather than failing the write; a held lock
// comes back as ErrConcurrentModification so the caller can retry.
func (s *ScheduleService) lockUser(ctx context.Context, userID uint, ttl time.Duration) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("scheduler:sessions:user:%d", userID)
	token, err := s.locks.AcquireLock(ctx, key, ttl)
	if err != nil {
		log.Printf("User lock unavailable, proceeding without it: %v", err)
		return func() {}, nil
	}
	if token == "" {
		return nil, fmt.Errorf("%w: another scheduling operation for this user is in progress", ErrConcurrentModification)
	}
	return func() {
		if err := s.locks.ReleaseLock(context.Background(), key, token); err != nil {
			log.Printf("Failed to release user lock %s: %v", key, err)
		}
	}, nil
}

// Config exposes the active policy (used by the bulk generator)
func (s *ScheduleService) Config() ScheduleConfig {
	return s.cfg
}

// CreateSessionRequest represents a request to create a single session
type CreateSessionRequest struct {
	CourseID              uint
	ComboID               *uint
	LessonID              *uint
	ScheduledDate         time.Time
	StartTime             string
	EndTime               string
	StudyGoal             string
	Notes                 string
	ReminderEnabled       bool
	ReminderMinutesBefore *int
}

// ConflictCandidate describes a proposed time range to test for overlap
type ConflictCandidate struct {
	ScheduledDate    time.Time
	StartTime        string
	EndTime          string
	ComboID          *uint
	ExcludeSessionID uint
}

// ListSessionsOptions represents filters for listing a user's sessions
type ListSessionsOptions struct {
	Date       *time.Time
	WeekOffset *int
	Month      *time.Time // any instant in the wanted month
	Status     model.ScheduleStatus
	ComboID    *uint
	CourseID   *uint
	Limit      int
	Offset     int
}

// UpdateSessionRequest represents a partial update; nil fields keep their value
type UpdateSessionRequest struct {
	ScheduledDate         *time.Time
	StartTime             *string
	EndTime               *string
	StudyGoal             *string
	Notes                 *string
	ReminderEnabled       *bool
	ReminderMinutesBefore *int
}

// validateClockRange checks a start/end wall-clock pair
func validateClockRange(start, end string) error {
	if _, err := model.ParseClock(start); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if _, err := model.ParseClock(end); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if start >= end {
		return fmt.Errorf("%w: start_time %s must be before end_time %s", ErrInvalidArgument, start, end)
	}
	return nil
}

func clockDuration(start, end string) int {
	s, _ := model.ParseClock(start)
	e, _ := model.ParseClock(end)
	return e - s
}

// HasConflict reports whether the candidate overlaps a non-cancelled session
// of the same user on the same date. The test is half-open, so back-to-back
// sessions never conflict. Only the (user_id, scheduled_date) slice of the
// table is consulted.
func (s *ScheduleService) HasConflict(ctx context.Context, userID uint, cand ConflictCandidate) (bool, error) {
	query := s.db.WithContext(ctx).Model(&model.StudySession{}).
		Where("user_id = ? AND scheduled_date = ?", userID, model.NormalizeDate(cand.ScheduledDate)).
		Where("status <> ?", model.ScheduleStatusCancelled).
		Where("start_time < ? AND end_time > ?", cand.EndTime, cand.StartTime)

	if cand.ExcludeSessionID != 0 {
		query = query.Where("id <> ?", cand.ExcludeSessionID)
	}

	// Policy parameter: when cross-combo overlap is allowed, only sessions
	// of the same combo (or without one) can block the candidate.
	if s.cfg.AllowCrossComboOverlap && cand.ComboID != nil {
		query = query.Where("combo_id IS NULL OR combo_id = ?", *cand.ComboID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return count > 0, nil
}

// CreateSession validates, conflict-checks and persists one session, and
// registers its reminder when enabled.
func (s *ScheduleService) CreateSession(ctx context.Context, userID uint, req CreateSessionRequest) (*model.StudySession, error) {
	if req.CourseID == 0 {
		return nil, fmt.Errorf("%w: course_id is required", ErrInvalidArgument)
	}
	if req.ScheduledDate.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_date is required", ErrInvalidArgument)
	}
	if err := validateClockRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.ReminderMinutesBefore != nil && *req.ReminderMinutesBefore < 0 {
		return nil, fmt.Errorf("%w: reminder_minutes_before must be non-negative", ErrInvalidArgument)
	}

	release, err := s.lockUser(ctx, userID, sessionLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	conflict, err := s.HasConflict(ctx, userID, ConflictCandidate{
		ScheduledDate: req.ScheduledDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ComboID:       req.ComboID,
	})
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrOverlap
	}

	session := &model.StudySession{
		UserID:                userID,
		CourseID:              req.CourseID,
		ComboID:               req.ComboID,
		LessonID:              req.LessonID,
		ScheduledDate:         model.NormalizeDate(req.ScheduledDate),
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		DurationMinutes:       clockDuration(req.StartTime, req.EndTime),
		StudyGoal:             req.StudyGoal,
		Notes:                 req.Notes,
		Status:                model.ScheduleStatusScheduled,
		ReminderEnabled:       req.ReminderEnabled,
		ReminderMinutesBefore: req.ReminderMinutesBefore,
	}

	// Insert and reminder registration commit together: a rejected reminder
	// rolls the session back, so a failed create leaves no row behind and a
	// corrected retry cannot collide with its own ghost.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if req.ReminderEnabled {
			lead := s.cfg.DefaultLeadMinutes
			if req.ReminderMinutesBefore != nil {
				lead = *req.ReminderMinutesBefore
			}
			if _, err := s.reminders.withTx(tx).ScheduleForSession(ctx, session, lead); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// GetSession loads a session owned by the user. Unknown and foreign-owned
// ids both come back as ErrNotFound.
func (s *ScheduleService) GetSession(ctx context.Context, userID, sessionID uint) (*model.StudySession, error) {
	var session model.StudySession
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// ListSessions retrieves a user's sessions with optional filters, ordered by
// date then start time.
func (s *ScheduleService) ListSessions(ctx context.Context, userID uint, opts ListSessionsOptions) ([]model.StudySession, error) {
	query := s.db.WithContext(ctx).Model(&model.StudySession{}).
		Where("user_id = ?", userID)

	if opts.Date != nil {
		query = query.Where("scheduled_date = ?", model.NormalizeDate(*opts.Date))
	}
	if opts.WeekOffset != nil {
		weekStart := WeekStart(time.Now(), *opts.WeekOffset)
		query = query.Where("scheduled_date >= ? AND scheduled_date < ?", weekStart, weekStart.AddDate(0, 0, 7))
	}
	if opts.Month != nil {
		monthStart := time.Date(opts.Month.Year(), opts.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("scheduled_date >= ? AND scheduled_date < ?", monthStart, monthStart.AddDate(0, 1, 0))
	}
	// missed is derived at read time, so both the missed and the scheduled
	// filters select stored scheduled rows and get resolved after the query.
	derivedStatus := opts.Status == model.ScheduleStatusMissed || opts.Status == model.ScheduleStatusScheduled
	if opts.Status != "" {
		if derivedStatus {
			query = query.Where("status = ?", model.ScheduleStatusScheduled)
		} else {
			query = query.Where("status = ?", opts.Status)
		}
	}
	if opts.ComboID != nil {
		query = query.Where("combo_id = ?", *opts.ComboID)
	}
	if opts.CourseID != nil {
		query = query.Where("course_id = ?", *opts.CourseID)
	}
	if !derivedStatus {
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Offset(opts.Offset)
		}
	}

	var sessions []model.StudySession
	if err := query.Order("scheduled_date ASC, start_time ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	if derivedStatus {
		now := time.Now()
		filtered := make([]model.StudySession, 0, len(sessions))
		for _, session := range sessions {
			if session.EffectiveStatus(now) == opts.Status {
				filtered = append(filtered, session)
			}
		}
		// Pagination applies to the derived result set
		if opts.Offset > 0 {
			if opts.Offset >= len(filtered) {
				filtered = filtered[:0]
			} else {
				filtered = filtered[opts.Offset:]
			}
		}
		if opts.Limit > 0 && opts.Limit < len(filtered) {
			filtered = filtered[:opts.Limit]
		}
		sessions = filtered
	}
	return sessions, nil
}

// guardedUpdate applies updates only if nobody else modified the row since it
// was read. GORM refreshes updated_at as part of the update itself.
func (s *ScheduleService) guardedUpdate(ctx context.Context, session *model.StudySession, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&model.StudySession{}).
		Where("id = ? AND user_id = ? AND updated_at = ?", session.ID, session.UserID, session.UpdatedAt).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// UpdateSession modifies a session's schedule fields. Only legal while the
// session is still in the scheduled state; date/time changes re-run the
// conflict checker excluding the session's own slot.
func (s *ScheduleService) UpdateSession(ctx context.Context, userID, sessionID uint, req UpdateSessionRequest) (*model.StudySession, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.ScheduleStatusScheduled {
		return nil, fmt.Errorf("%w: session is %s, only scheduled sessions can be updated", ErrInvalidTransition, session.Status)
	}

	date := session.ScheduledDate
	start := session.StartTime
	end := session.EndTime
	timeChanged := false

	if req.ScheduledDate != nil {
		date = model.NormalizeDate(*req.ScheduledDate)
		timeChanged = true
	}
	if req.StartTime != nil {
		start = *req.StartTime
		timeChanged = true
	}
	if req.EndTime != nil {
		end = *req.EndTime
		timeChanged = true
	}

	updates := map[string]interface{}{}

	if timeChanged {
		if err := validateClockRange(start, end); err != nil {
			return nil, err
		}
		release, err := s.lockUser(ctx, userID, sessionLockTTL)
		if err != nil {
			return nil, err
		}
		defer release()

		conflict, err := s.HasConflict(ctx, userID, ConflictCandidate{
			ScheduledDate:    date,
			StartTime:        start,
			EndTime:          end,
			ComboID:          session.ComboID,
			ExcludeSessionID: session.ID,
		})
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, ErrOverlap
		}
		updates["scheduled_date"] = date
		updates["start_time"] = start
		updates["end_time"] = end
		updates["duration_minutes"] = clockDuration(start, end)
	}

	if req.StudyGoal != nil {
		updates["study_goal"] = *req.StudyGoal
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.ReminderEnabled != nil {
		updates["reminder_enabled"] = *req.ReminderEnabled
	}
	if req.ReminderMinutesBefore != nil {
		if *req.ReminderMinutesBefore < 0 {
			return nil, fmt.Errorf("%w: reminder_minutes_before must be non-negative", ErrInvalidArgument)
		}
		updates["reminder_minutes_before"] = *req.ReminderMinutesBefore
	}

	if len(updates) == 0 {
		return session, nil
	}

	if err := s.guardedUpdate(ctx, session, updates); err != nil {
		return nil, err
	}

	updated, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	// A moved session drags its pending reminder with it.
	if timeChanged && updated.ReminderEnabled {
		if err := s.reminders.RescheduleForSession(ctx, updated); err != nil {
			log.Printf("Failed to reschedule reminder for session %d: %v", updated.ID, err)
		}
	}

	return updated, nil
}

// StartSession transitions scheduled -> in_progress. Starting early or late
// is allowed; only the stored state gates the transition.
func (s *ScheduleService) StartSession(ctx context.Context, userID, sessionID uint) (*model.StudySession, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.ScheduleStatusScheduled {
		return nil, fmt.Errorf("%w: cannot start a %s session", ErrInvalidTransition, session.Status)
	}

	if err := s.guardedUpdate(ctx, session, map[string]interface{}{
		"status": model.ScheduleStatusInProgress,
	}); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, userID, sessionID)
}

// CompleteSession transitions scheduled|in_progress -> completed with a
// 0-100 completion percentage.
func (s *ScheduleService) CompleteSession(ctx context.Context, userID, sessionID uint, completionPercentage int) (*model.StudySession, error) {
	if completionPercentage < 0 || completionPercentage > 100 {
		return nil, fmt.Errorf("%w: completion_percentage must be between 0 and 100, got %d", ErrInvalidArgument, completionPercentage)
	}

	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.ScheduleStatusScheduled && session.Status != model.ScheduleStatusInProgress {
		return nil, fmt.Errorf("%w: cannot complete a %s session", ErrInvalidTransition, session.Status)
	}

	if err := s.guardedUpdate(ctx, session, map[string]interface{}{
		"status":                model.ScheduleStatusCompleted,
		"completion_percentage": completionPercentage,
	}); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, userID, sessionID)
}

// CancelSession transitions scheduled|in_progress -> cancelled and cascades
// to the session's still-pending reminder.
func (s *ScheduleService) CancelSession(ctx context.Context, userID, sessionID uint) (*model.StudySession, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.ScheduleStatusScheduled && session.Status != model.ScheduleStatusInProgress {
		return nil, fmt.Errorf("%w: cannot cancel a %s session", ErrInvalidTransition, session.Status)
	}

	if err := s.guardedUpdate(ctx, session, map[string]interface{}{
		"status": model.ScheduleStatusCancelled,
	}); err != nil {
		return nil, err
	}

	if err := s.reminders.CancelForSession(ctx, session.ID); err != nil {
		log.Printf("Failed to cancel reminders for session %d: %v", session.ID, err)
	}

	return s.GetSession(ctx, userID, sessionID)
}

// DeleteSession removes a session and its undelivered reminders. Reminders
// that were already sent are kept as delivery history.
func (s *ScheduleService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ? AND status <> ?", session.ID, model.ReminderStatusSent).
			Delete(&model.StudyReminder{}).Error; err != nil {
			return fmt.Errorf("failed to delete reminders: %w", err)
		}
		if err := tx.Delete(&model.StudySession{}, session.ID).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

// WeekStart returns the Monday (UTC midnight) of the week weekOffset weeks
// away from the given instant.
func WeekStart(from time.Time, weekOffset int) time.Time {
	day := model.NormalizeDate(from)
	// time.Weekday has Sunday == 0; shift so Monday starts the week
	daysSinceMonday := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -daysSinceMonday+7*weekOffset)
}
