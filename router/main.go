package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/study-scheduler/config"
	"github.com/sahilchouksey/study-scheduler/database"
	"github.com/sahilchouksey/study-scheduler/handlers"
	schedule_handlers "github.com/sahilchouksey/study-scheduler/handlers/schedule"
	"github.com/sahilchouksey/study-scheduler/services"
	"github.com/sahilchouksey/study-scheduler/utils"
	"github.com/sahilchouksey/study-scheduler/utils/auth"
	"github.com/sahilchouksey/study-scheduler/utils/cache"
	"github.com/sahilchouksey/study-scheduler/utils/middleware"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnviornmentVariable) {
	// Get JWT secret from environment
	jwtSecret := env.JWT_SECRET
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "study-scheduler-api"
	}

	// Initialize JWT manager with config
	jwtConfig := auth.JWTConfig{
		Secret: jwtSecret,
		Expiry: 24 * time.Hour, // Access token expires in 24 hours
		Issuer: jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Initialize Redis cache for bulk-generation locks and summary caching
	redisURL := env.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Bulk locks and summary caching will be disabled.", err)
	}

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Initialize schedule services
	scheduleConfig := services.ScheduleConfig{
		MaxWeeks:               env.SCHEDULER_MAX_WEEKS,
		DefaultLeadMinutes:     env.SCHEDULER_DEFAULT_LEAD_MIN,
		AllowCrossComboOverlap: env.ALLOW_CROSS_COMBO_OVERLAP,
	}

	reminderService := services.NewReminderService(db)
	scheduleService := services.NewScheduleService(db, reminderService, redisCache, scheduleConfig)
	bulkGenerator := services.NewBulkGenerator(db, scheduleService, reminderService)
	analyticsService := services.NewAnalyticsService(db, redisCache)

	scheduleHandler := schedule_handlers.NewScheduleHandler(db, scheduleService, bulkGenerator, analyticsService)
	reminderHandler := schedule_handlers.NewReminderHandler(db, reminderService)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// API v1 group
	api := app.Group("/api/v1")

	// Schedule routes (all protected, scoped to the authenticated user)
	schedules := api.Group("/schedules", authMiddleware.Required())

	schedules.Post("/", scheduleHandler.CreateSchedule)
	schedules.Post("/bulk-generate", scheduleHandler.BulkGenerate)
	schedules.Get("/my-schedules", scheduleHandler.MySchedules)
	schedules.Get("/weekly-schedule", scheduleHandler.WeeklySchedule)
	schedules.Get("/analytics", scheduleHandler.Analytics)
	schedules.Get("/combos/:combo_id/progress", scheduleHandler.ComboProgress)

	// Reminder routes; registered before /:id so the path does not
	// get captured as a schedule ID
	schedules.Get("/reminders/my-reminders", reminderHandler.MyReminders)
	schedules.Post("/reminders/:id/read", reminderHandler.MarkRead)

	schedules.Get("/:id", scheduleHandler.GetSchedule)
	schedules.Put("/:id", scheduleHandler.UpdateSchedule)
	schedules.Delete("/:id", scheduleHandler.DeleteSchedule)

	// Session lifecycle transitions
	schedules.Post("/:id/start", scheduleHandler.StartSchedule)
	schedules.Post("/:id/complete", scheduleHandler.CompleteSchedule)
	schedules.Post("/:id/cancel", scheduleHandler.CancelSchedule)
}
