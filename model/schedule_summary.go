package model

import "time"

// WeeklyScheduleSummary aggregates a user's sessions over one 7-day window.
// Derived on demand, never persisted.
type WeeklyScheduleSummary struct {
	WeekStart         time.Time              `json:"week_start"`
	WeekEnd           time.Time              `json:"week_end"`
	TotalSessions     int                    `json:"total_sessions"`
	CompletedSessions int                    `json:"completed_sessions"`
	MissedSessions    int                    `json:"missed_sessions"`
	TotalPlannedHours float64                `json:"total_planned_hours"`
	TotalActualHours  float64                `json:"total_actual_hours"`
	CompletionRate    float64                `json:"completion_rate"`
	Sessions          []StudySessionResponse `json:"sessions"`
}

// StudyAnalytics aggregates a user's sessions over a week or month period.
type StudyAnalytics struct {
	Period                  string          `json:"period"` // "week" or "month"
	PeriodStart             time.Time       `json:"period_start"`
	PeriodEnd               time.Time       `json:"period_end"`
	TotalSessions           int             `json:"total_sessions"`
	CompletedSessions       int             `json:"completed_sessions"`
	MissedSessions          int             `json:"missed_sessions"`
	CancelledSessions       int             `json:"cancelled_sessions"`
	ScheduledSessions       int             `json:"scheduled_sessions"`
	TotalStudyHours         float64         `json:"total_study_hours"`
	AvgCompletionPercentage float64         `json:"avg_completion_percentage"`
	MostStudiedSkill        string          `json:"most_studied_skill,omitempty"`
	ComboProgress           []ComboProgress `json:"combo_progress,omitempty"`
}

// ComboProgress tracks how far a user has progressed through a combo's courses.
type ComboProgress struct {
	ComboID            uint    `json:"combo_id"`
	ComboName          string  `json:"combo_name,omitempty"`
	CompletedCourses   int     `json:"completed_courses"`
	TotalCourses       int     `json:"total_courses"`
	ProgressPercentage float64 `json:"progress_percentage"`
}
