package model

import (
	"time"
)

// ScheduleStatus represents the lifecycle state of a study session
type ScheduleStatus string

const (
	ScheduleStatusScheduled  ScheduleStatus = "scheduled"
	ScheduleStatusInProgress ScheduleStatus = "in_progress"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusMissed     ScheduleStatus = "missed"
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from the status.
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleStatusCompleted || s == ScheduleStatusCancelled || s == ScheduleStatusMissed
}

// StudySession represents one concrete, dated study commitment
type StudySession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;index:idx_session_user_date" json:"user_id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	ComboID   *uint     `gorm:"index" json:"combo_id,omitempty"`
	LessonID  *uint     `json:"lesson_id,omitempty"`

	// ScheduledDate is normalized to UTC midnight; StartTime/EndTime are
	// same-day "HH:MM" wall-clock strings with start < end.
	ScheduledDate   time.Time `gorm:"not null;index:idx_session_user_date" json:"scheduled_date"`
	StartTime       string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime         string    `gorm:"type:varchar(5);not null" json:"end_time"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`

	StudyGoal string `gorm:"type:text" json:"study_goal,omitempty"`
	Notes     string `gorm:"type:text" json:"notes,omitempty"`

	Status               ScheduleStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	CompletionPercentage int            `gorm:"default:0" json:"completion_percentage"`

	ReminderEnabled       bool `gorm:"default:false" json:"reminder_enabled"`
	ReminderMinutesBefore *int `json:"reminder_minutes_before,omitempty"`
	ReminderSent          bool `gorm:"default:false" json:"reminder_sent"`

	// Relationships
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Combo  *Combo `gorm:"foreignKey:ComboID" json:"combo,omitempty"`
}

// StartDateTime returns the full timestamp at which the session begins.
func (s *StudySession) StartDateTime() time.Time {
	return CombineDateClock(s.ScheduledDate, s.StartTime)
}

// EndDateTime returns the full timestamp at which the session ends.
func (s *StudySession) EndDateTime() time.Time {
	return CombineDateClock(s.ScheduledDate, s.EndTime)
}

// EffectiveStatus classifies a still-scheduled session whose end time has
// passed as missed. The transition is derived at read time rather than
// persisted; an optional sweep job can promote it to a stored status.
func (s *StudySession) EffectiveStatus(now time.Time) ScheduleStatus {
	if s.Status == ScheduleStatusScheduled && s.EndDateTime().Before(now) {
		return ScheduleStatusMissed
	}
	return s.Status
}

// OverlapsClock runs the half-open interval test against another time range
// on the same date. Back-to-back sessions do not overlap.
func (s *StudySession) OverlapsClock(start, end string) bool {
	return s.StartTime < end && start < s.EndTime
}

// StudySessionResponse represents the API response format for a session
type StudySessionResponse struct {
	ID                    uint           `json:"id"`
	UserID                uint           `json:"user_id"`
	CourseID              uint           `json:"course_id"`
	ComboID               *uint          `json:"combo_id,omitempty"`
	LessonID              *uint          `json:"lesson_id,omitempty"`
	ScheduledDate         string         `json:"scheduled_date"`
	StartTime             string         `json:"start_time"`
	EndTime               string         `json:"end_time"`
	DurationMinutes       int            `json:"duration_minutes"`
	StudyGoal             string         `json:"study_goal,omitempty"`
	Notes                 string         `json:"notes,omitempty"`
	Status                ScheduleStatus `json:"status"`
	CompletionPercentage  int            `json:"completion_percentage"`
	ReminderEnabled       bool           `json:"reminder_enabled"`
	ReminderMinutesBefore *int           `json:"reminder_minutes_before,omitempty"`
	ReminderSent          bool           `json:"reminder_sent"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// ToResponse converts a StudySession to its API shape. The status reflects
// the derived missed classification relative to now.
func (s *StudySession) ToResponse(now time.Time) StudySessionResponse {
	return StudySessionResponse{
		ID:                    s.ID,
		UserID:                s.UserID,
		CourseID:              s.CourseID,
		ComboID:               s.ComboID,
		LessonID:              s.LessonID,
		ScheduledDate:         s.ScheduledDate.Format("2006-01-02"),
		StartTime:             s.StartTime,
		EndTime:               s.EndTime,
		DurationMinutes:       s.DurationMinutes,
		StudyGoal:             s.StudyGoal,
		Notes:                 s.Notes,
		Status:                s.EffectiveStatus(now),
		CompletionPercentage:  s.CompletionPercentage,
		ReminderEnabled:       s.ReminderEnabled,
		ReminderMinutesBefore: s.ReminderMinutesBefore,
		ReminderSent:          s.ReminderSent,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}
