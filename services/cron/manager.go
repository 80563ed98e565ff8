package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/study-scheduler/model"
	"github.com/sahilchouksey/study-scheduler/services"
	"gorm.io/gorm"
)

// Config controls which background jobs run
type Config struct {
	SweepEnabled     bool // persist the derived missed status via a periodic sweep
	DispatchBatchMax int  // max reminders handled per dispatch tick
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	reminders *services.ReminderService
	notifier  services.Notifier
	cfg       Config
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, reminders *services.ReminderService, notifier services.Notifier, cfg Config) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:      c,
		db:        db,
		reminders: reminders,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	// Register all jobs
	if err := m.registerJobs(); err != nil {
		return err
	}

	// Start the cron scheduler
	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every 60 seconds: deliver due reminders
	_, err := m.cron.AddFunc("0 * * * * *", func() {
		m.logJobStart("dispatch_due_reminders")
		m.DispatchDueReminders()
	})
	if err != nil {
		return err
	}

	// 2. Hourly: persist the missed transition for past scheduled sessions.
	// Off by default; the missed status is otherwise derived at read time.
	if m.cfg.SweepEnabled {
		_, err = m.cron.AddFunc("0 5 * * * *", func() {
			m.logJobStart("sweep_missed_sessions")
			m.SweepMissedSessions()
		})
		if err != nil {
			return err
		}
	}

	// 3. Daily at 2 AM: drop old cancelled/failed reminders
	_, err = m.cron.AddFunc("0 0 2 * * *", func() {
		m.logJobStart("cleanup_old_reminders")
		m.CleanupOldReminders()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	// Log to database
	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
		Metadata:  "{}",
	}
	m.db.Create(&cronLog)
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)

	// Update database log
	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": time.Now(),
			"message":      message,
		})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)

	// Update database log
	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "failed",
			"completed_at": time.Now(),
			"error_msg":    err.Error(),
		})
}
