package schedule

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/study-scheduler/model"
	"github.com/sahilchouksey/study-scheduler/services"
	"github.com/sahilchouksey/study-scheduler/utils/response"
	"gorm.io/gorm"
)

// ReminderHandler handles study reminder requests
type ReminderHandler struct {
	db              *gorm.DB
	reminderService *services.ReminderService
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(db *gorm.DB, reminderService *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{
		db:              db,
		reminderService: reminderService,
	}
}

// MyReminders handles GET /api/v1/schedules/reminders/my-reminders
func (h *ReminderHandler) MyReminders(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	opts := services.ListRemindersOptions{
		UnreadOnly: c.Query("unread_only") == "true",
		Status:     model.ReminderStatus(c.Query("status")),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	reminders, total, err := h.reminderService.ListByUser(c.Context(), currentUserID(c), opts)
	if err != nil {
		return serviceError(c, err)
	}

	items := make([]model.ReminderResponse, 0, len(reminders))
	for i := range reminders {
		items = append(items, reminders[i].ToResponse())
	}

	return response.Paginated(c, items, response.CalculatePagination(page, limit, total))
}

// MarkRead handles POST /api/v1/schedules/reminders/:id/read
func (h *ReminderHandler) MarkRead(c *fiber.Ctx) error {
	reminderID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid reminder ID")
	}

	if err := h.reminderService.MarkRead(c.Context(), currentUserID(c), uint(reminderID)); err != nil {
		return serviceError(c, err)
	}
	return response.SuccessWithMessage(c, "Reminder marked as read", nil)
}
