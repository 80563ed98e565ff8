package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/study-scheduler/model"
	"gorm.io/gorm"
)

const (
	// SkipReasonOverlap marks a candidate rejected by the conflict checker
	SkipReasonOverlap = "overlap"
	// SkipReasonReminderPast marks a created session whose reminder was not
	// registered because its fire time had already passed
	SkipReasonReminderPast = "reminder_in_past"

	bulkLockTTL = 30 * time.Second
)

// BulkGenerator expands a recurring weekly pattern over N weeks into
// concrete study sessions
type BulkGenerator struct {
	db        *gorm.DB
	schedules *ScheduleService
	reminders *ReminderService
}

// NewBulkGenerator creates a new bulk generator
func NewBulkGenerator(db *gorm.DB, schedules *ScheduleService, reminders *ReminderService) *BulkGenerator {
	return &BulkGenerator{
		db:        db,
		schedules: schedules,
		reminders: reminders,
	}
}

// BulkGenerateRequest represents a recurring pattern to materialize
type BulkGenerateRequest struct {
	CourseID              uint
	ComboID               *uint
	WeeksCount            int
	StartDate             time.Time // anchor; zero value means today
	TimeSlots             []model.TimeSlot
	StudyGoal             string
	ReminderEnabled       bool
	ReminderMinutesBefore *int
}

// SkippedSlot records one candidate that was not (fully) materialized
type SkippedSlot struct {
	Slot       model.TimeSlot `json:"slot"`
	WeekOffset int            `json:"week_offset"`
	Date       string         `json:"date"`
	Reason     string         `json:"reason"`
}

// BulkGenerateResult is the partial-success outcome of a bulk generation
type BulkGenerateResult struct {
	Created      []model.StudySession `json:"schedules"`
	CreatedCount int                  `json:"created_count"`
	Skipped      []SkippedSlot        `json:"skipped"`
}

func (g *BulkGenerator) validate(req BulkGenerateRequest) error {
	cfg := g.schedules.Config()
	if req.CourseID == 0 {
		return fmt.Errorf("%w: course_id is required", ErrInvalidArgument)
	}
	if req.WeeksCount < 1 || req.WeeksCount > cfg.MaxWeeks {
		return fmt.Errorf("%w: weeks_count must be between 1 and %d, got %d", ErrInvalidArgument, cfg.MaxWeeks, req.WeeksCount)
	}
	if len(req.TimeSlots) == 0 {
		return fmt.Errorf("%w: time_slots must not be empty", ErrInvalidArgument)
	}
	for i, slot := range req.TimeSlots {
		if err := slot.Validate(); err != nil {
			return fmt.Errorf("%w: time_slots[%d]: %v", ErrInvalidArgument, i, err)
		}
	}
	if req.ReminderMinutesBefore != nil && *req.ReminderMinutesBefore < 0 {
		return fmt.Errorf("%w: reminder_minutes_before must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// GenerateBulk materializes weeks_count x time_slots candidates. Each
// candidate is conflict-checked and persisted independently: a conflict is
// recorded in Skipped and never aborts the batch. Because the conflict
// checker sees previously committed output, re-running the same request is
// idempotent (the second run skips everything as overlap).
func (g *BulkGenerator) GenerateBulk(ctx context.Context, userID uint, req BulkGenerateRequest) (*BulkGenerateResult, error) {
	if err := g.validate(req); err != nil {
		return nil, err
	}

	// Bulk runs share the per-user lock with single creates and updates, so
	// concurrent writers for the same user never race the conflict checker's
	// read-then-insert window.
	release, err := g.schedules.lockUser(ctx, userID, bulkLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}

	lead := g.schedules.Config().DefaultLeadMinutes
	if req.ReminderMinutesBefore != nil {
		lead = *req.ReminderMinutesBefore
	}

	result := &BulkGenerateResult{
		Created: []model.StudySession{},
		Skipped: []SkippedSlot{},
	}

	for weekOffset := 0; weekOffset < req.WeeksCount; weekOffset++ {
		for _, slot := range req.TimeSlots {
			// Committed candidates stay committed if the caller gives up.
			if err := ctx.Err(); err != nil {
				return result, fmt.Errorf("bulk generation interrupted: %w", err)
			}

			date := slot.OccurrenceOn(startDate, weekOffset)

			conflict, err := g.schedules.HasConflict(ctx, userID, ConflictCandidate{
				ScheduledDate: date,
				StartTime:     slot.StartTime,
				EndTime:       slot.EndTime,
				ComboID:       req.ComboID,
			})
			if err != nil {
				return result, err
			}
			if conflict {
				result.Skipped = append(result.Skipped, SkippedSlot{
					Slot:       slot,
					WeekOffset: weekOffset,
					Date:       date.Format("2006-01-02"),
					Reason:     SkipReasonOverlap,
				})
				continue
			}

			session := model.StudySession{
				UserID:                userID,
				CourseID:              req.CourseID,
				ComboID:               req.ComboID,
				ScheduledDate:         date,
				StartTime:             slot.StartTime,
				EndTime:               slot.EndTime,
				DurationMinutes:       slot.DurationMinutes(),
				StudyGoal:             req.StudyGoal,
				Status:                model.ScheduleStatusScheduled,
				ReminderEnabled:       req.ReminderEnabled,
				ReminderMinutesBefore: req.ReminderMinutesBefore,
			}
			if err := g.db.WithContext(ctx).Create(&session).Error; err != nil {
				return result, fmt.Errorf("failed to create session for %s %s: %w", date.Format("2006-01-02"), slot.StartTime, err)
			}

			if req.ReminderEnabled {
				if _, err := g.reminders.ScheduleForSession(ctx, &session, lead); err != nil {
					// The session stands; only the reminder is dropped. A
					// past fire time is reported, other errors bubble up.
					if isInvalidArgument(err) {
						result.Skipped = append(result.Skipped, SkippedSlot{
							Slot:       slot,
							WeekOffset: weekOffset,
							Date:       date.Format("2006-01-02"),
							Reason:     SkipReasonReminderPast,
						})
					} else {
						return result, err
					}
				}
			}

			result.Created = append(result.Created, session)
		}
	}

	result.CreatedCount = len(result.Created)
	return result, nil
}
