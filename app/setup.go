package app

import (
	"fmt"
	"os"

	"github.com/sahilchouksey/study-scheduler/api"
	"github.com/sahilchouksey/study-scheduler/config"
	"github.com/sahilchouksey/study-scheduler/router"
	"github.com/sahilchouksey/study-scheduler/services"
	"github.com/sahilchouksey/study-scheduler/services/cron"
	"gorm.io/gorm"

	"github.com/sahilchouksey/study-scheduler/database"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err

	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("If not running, run the following command:\n")
		print("  make docker-up   (for Docker setup)\n")
		print("  make db-up       (for local PostgreSQL)\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		db, ok := store.GetDB().(*gorm.DB)
		if !ok {
			print("Warning: Failed to get database connection for cron jobs\n")
		} else {
			reminderService := services.NewReminderService(db)
			notifier := services.NewLogNotifier()
			cronConfig := cron.Config{
				SweepEnabled:     getEnv.SCHEDULER_SWEEP_ENABLED,
				DispatchBatchMax: getEnv.REMINDER_DISPATCH_BATCH_MAX,
			}
			cronManager = cron.NewCronManager(db, reminderService, notifier, cronConfig)
			if err := cronManager.Start(); err != nil {
				print("Warning: Failed to start cron jobs\n")
				print("Error: ", err.Error(), "\n")
				// Don't fail the app, just log the warning
			}
		}
	}

	// Defer Closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes (security middleware is attached inside)
	router.SetupRoutes(app, store, getEnv)

	// Get the PORT & Start the Server
	return server.Run()

}
