package schedule

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/study-scheduler/model"
	"github.com/sahilchouksey/study-scheduler/services"
	"github.com/sahilchouksey/study-scheduler/utils/response"
	"github.com/sahilchouksey/study-scheduler/utils/validation"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// ScheduleHandler handles study schedule requests
type ScheduleHandler struct {
	db               *gorm.DB
	validator        *validation.Validator
	scheduleService  *services.ScheduleService
	bulkGenerator    *services.BulkGenerator
	analyticsService *services.AnalyticsService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(db *gorm.DB, scheduleService *services.ScheduleService, bulkGenerator *services.BulkGenerator, analyticsService *services.AnalyticsService) *ScheduleHandler {
	return &ScheduleHandler{
		db:               db,
		validator:        validation.NewValidator(),
		scheduleService:  scheduleService,
		bulkGenerator:    bulkGenerator,
		analyticsService: analyticsService,
	}
}

// serviceError maps engine errors to the standard error envelope
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return response.NotFound(c, "Schedule not found")
	case errors.Is(err, services.ErrOverlap):
		return response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		return response.Error(c, fiber.StatusConflict, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, services.ErrInvalidArgument):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrConcurrentModification):
		return response.Error(c, fiber.StatusConflict, err.Error(), "CONCURRENT_MODIFICATION")
	default:
		return response.InternalServerError(c, "")
	}
}

func currentUserID(c *fiber.Ctx) uint {
	userID, _ := c.Locals("user_id").(uint)
	return userID
}

func sessionResponses(sessions []model.StudySession) []model.StudySessionResponse {
	now := time.Now()
	out := make([]model.StudySessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessions[i].ToResponse(now))
	}
	return out
}

// CreateScheduleRequest represents the request body for creating one session
type CreateScheduleRequest struct {
	CourseID              uint   `json:"course_id" validate:"required"`
	ComboID               *uint  `json:"combo_id"`
	LessonID              *uint  `json:"lesson_id"`
	ScheduledDate         string `json:"scheduled_date" validate:"required"`
	StartTime             string `json:"start_time" validate:"required"`
	EndTime               string `json:"end_time" validate:"required"`
	StudyGoal             string `json:"study_goal" validate:"omitempty,max=1000"`
	Notes                 string `json:"notes" validate:"omitempty,max=2000"`
	ReminderEnabled       bool   `json:"reminder_enabled"`
	ReminderMinutesBefore *int   `json:"reminder_minutes_before" validate:"omitempty,gte=0"`
}

// CreateSchedule handles POST /api/v1/schedules
func (h *ScheduleHandler) CreateSchedule(c *fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	date, err := time.Parse(dateLayout, req.ScheduledDate)
	if err != nil {
		return response.BadRequest(c, "scheduled_date must be formatted as YYYY-MM-DD")
	}

	session, err := h.scheduleService.CreateSession(c.Context(), currentUserID(c), services.CreateSessionRequest{
		CourseID:              req.CourseID,
		ComboID:               req.ComboID,
		LessonID:              req.LessonID,
		ScheduledDate:         date,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		StudyGoal:             req.StudyGoal,
		Notes:                 req.Notes,
		ReminderEnabled:       req.ReminderEnabled,
		ReminderMinutesBefore: req.ReminderMinutesBefore,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, session.ToResponse(time.Now()))
}

// TimeSlotRequest represents one recurring weekly slot in a bulk request
type TimeSlotRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"` // 0 = Sunday
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// BulkScheduleRequest represents the request body for bulk generation
type BulkScheduleRequest struct {
	CourseID              uint              `json:"course_id" validate:"required"`
	ComboID               *uint             `json:"combo_id"`
	WeeksCount            int               `json:"weeks_count" validate:"required,min=1,max=52"`
	StartDate             string            `json:"start_date"`
	TimeSlots             []TimeSlotRequest `json:"time_slots" validate:"required,min=1,dive"`
	StudyGoal             string            `json:"study_goal" validate:"omitempty,max=1000"`
	ReminderEnabled       bool              `json:"reminder_enabled"`
	ReminderMinutesBefore *int              `json:"reminder_minutes_before" validate:"omitempty,gte=0"`
}

// BulkGenerate handles POST /api/v1/schedules/bulk-generate. Individual conflicts are
// reported per candidate; the call itself only fails on bad input.
func (h *ScheduleHandler) BulkGenerate(c *fiber.Ctx) error {
	var req BulkScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var startDate time.Time
	if req.StartDate != "" {
		var err error
		startDate, err = time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return response.BadRequest(c, "start_date must be formatted as YYYY-MM-DD")
		}
	}

	slots := make([]model.TimeSlot, 0, len(req.TimeSlots))
	for _, s := range req.TimeSlots {
		slots = append(slots, model.TimeSlot{
			DayOfWeek: time.Weekday(s.DayOfWeek),
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		})
	}

	result, err := h.bulkGenerator.GenerateBulk(c.Context(), currentUserID(c), services.BulkGenerateRequest{
		CourseID:              req.CourseID,
		ComboID:               req.ComboID,
		WeeksCount:            req.WeeksCount,
		StartDate:             startDate,
		TimeSlots:             slots,
		StudyGoal:             req.StudyGoal,
		ReminderEnabled:       req.ReminderEnabled,
		ReminderMinutesBefore: req.ReminderMinutesBefore,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return response.Success(c, fiber.Map{
		"created_count": result.CreatedCount,
		"schedules":     sessionResponses(result.Created),
		"skipped":       result.Skipped,
	})
}

// MySchedules handles GET /api/v1/schedules/my-schedules
func (h *ScheduleHandler) MySchedules(c *fiber.Ctx) error {
	opts := services.ListSessionsOptions{}

	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			return response.BadRequest(c, "date must be formatted as YYYY-MM-DD")
		}
		opts.Date = &date
	}
	if raw := c.Query("week_offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return response.BadRequest(c, "week_offset must be an integer")
		}
		opts.WeekOffset = &offset
	}
	if raw := c.Query("month"); raw != "" {
		month, err := time.Parse("2006-01", raw)
		if err != nil {
			return response.BadRequest(c, "month must be formatted as YYYY-MM")
		}
		opts.Month = &month
	}
	if raw := c.Query("status"); raw != "" {
		opts.Status = model.ScheduleStatus(raw)
	}
	if raw := c.Query("combo_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "combo_id must be an integer")
		}
		comboID := uint(id)
		opts.ComboID = &comboID
	}
	if raw := c.Query("course_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "course_id must be an integer")
		}
		courseID := uint(id)
		opts.CourseID = &courseID
	}

	sessions, err := h.scheduleService.ListSessions(c.Context(), currentUserID(c), opts)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Success(c, sessionResponses(sessions))
}

// WeeklySchedule handles GET /api/v1/schedules/weekly-schedule?week_offset=
func (h *ScheduleHandler) WeeklySchedule(c *fiber.Ctx) error {
	weekOffset := 0
	if raw := c.Query("week_offset"); raw != "" {
		var err error
		weekOffset, err = strconv.Atoi(raw)
		if err != nil {
			return response.BadRequest(c, "week_offset must be an integer")
		}
	}

	summary, err := h.analyticsService.WeeklySummary(c.Context(), currentUserID(c), weekOffset)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, summary)
}

// GetSchedule handles GET /api/v1/schedules/:id
func (h *ScheduleHandler) GetSchedule(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid schedule ID")
	}

	session, err := h.scheduleService.GetSession(c.Context(), currentUserID(c), uint(sessionID))
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, session.ToResponse(time.Now()))
}

// UpdateScheduleRequest represents a partial session update
type UpdateScheduleRequest struct {
	ScheduledDate         *string `json:"scheduled_date"`
	StartTime             *string `json:"start_time"`
	EndTime               *string `json:"end_time"`
	StudyGoal             *string `json:"study_goal" validate:"omitempty,max=1000"`
	Notes                 *string `json:"notes" validate:"omitempty,max=2000"`
	ReminderEnabled       *bool   `json:"reminder_enabled"`
	ReminderMinutesBefore *int    `json:"reminder_minutes_before" validate:"omitempty,gte=0"`
}

// UpdateSchedule handles PUT /api/v1/schedules/:id
func (h *ScheduleHandler) UpdateSchedule(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid schedule ID")
	}

	var req UpdateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	update := services.UpdateSessionRequest{
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		StudyGoal:             req.StudyGoal,
		Notes:                 req.Notes,
		ReminderEnabled:       req.ReminderEnabled,
		ReminderMinutesBefore: req.ReminderMinutesBefore,
	}
	if req.ScheduledDate != nil {
		date, err := time.Parse(dateLayout, *req.ScheduledDate)
		if err != nil {
			return response.BadRequest(c, "scheduled_date must be formatted as YYYY-MM-DD")
		}
		update.ScheduledDate = &date
	}

	session, err := h.scheduleService.UpdateSession(c.Context(), currentUserID(c), uint(sessionID), update)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, session.ToResponse(time.Now()))
}

// StartSchedule handles POST /api/v1/schedules/:id/start
func (h *ScheduleHandler) StartSchedule(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid schedule ID")
	}

	session, err := h.scheduleService.StartSession(c.Context(), currentUserID(c), uint(sessionID))
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessWithMessage(c, "Session started", session.ToResponse(time.Now()))
}

// CompleteScheduleRequest carries the student-reported completion percentage
type CompleteScheduleRequest struct {
	CompletionPercentage *int `json:"completion_percentage" validate:"required,min=0,max=100"`
}

// CompleteSchedule handles POST /api/v1/schedules/:id/complete
func (h *ScheduleHandler) CompleteSchedule(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid schedule ID")
	}

	var req CompleteScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	session, err := h.scheduleService.CompleteSession(c.Context(), currentUserID(c), uint(sessionID), *req.CompletionPercentage)
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessWithMessage(c, "Session completed", session.ToResponse(time.Now()))
}

// CancelSchedule handles POST /api/v1/schedules/:id/cancel
func (h *ScheduleHandler) CancelSchedule(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid schedule ID")
	}

	session, err := h.scheduleService.CancelSession(c.Context(), currentUserID(c), uint(sessionID))
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessWithMessage(c, "Session cancelled", session.ToResponse(time.Now()))
}

// DeleteSchedule handles DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) DeleteSchedule(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid schedule ID")
	}

	if err := h.scheduleService.DeleteSession(c.Context(), currentUserID(c), uint(sessionID)); err != nil {
		return serviceError(c, err)
	}
	return response.NoContent(c)
}

// Analytics handles GET /api/v1/schedules/analytics?period=week|month
func (h *ScheduleHandler) Analytics(c *fiber.Ctx) error {
	period := c.Query("period", "week")

	analytics, err := h.analyticsService.Analytics(c.Context(), currentUserID(c), period)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, analytics)
}

// ComboProgress handles GET /api/v1/schedules/combos/:combo_id/progress
func (h *ScheduleHandler) ComboProgress(c *fiber.Ctx) error {
	comboID, err := strconv.ParseUint(c.Params("combo_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid combo ID")
	}

	progress, err := h.analyticsService.ComboProgress(c.Context(), currentUserID(c), uint(comboID))
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, progress)
}
