package CronJobs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"Warden/Models"
	"Warden/Notifications"
	"Warden/email"
)

// MaintenanceReminder scans maintenance schedules daily and notifies
// supervisors about due dates inside the warning window.
type MaintenanceReminder struct {
	cronScheduler *cron.Cron
	db            *gorm.DB
	warningDays   int
	jobID         cron.EntryID
}

// NewMaintenanceReminder builds the reminder with the warning window from
// MAINTENANCE_WARNING_DAYS (default 7).
func NewMaintenanceReminder(db *gorm.DB) *MaintenanceReminder {
	warningDays, _ := strconv.Atoi(os.Getenv("MAINTENANCE_WARNING_DAYS"))
	if warningDays <= 0 {
		warningDays = 7
	}
	return &MaintenanceReminder{
		cronScheduler: cron.New(cron.WithSeconds()),
		db:            db,
		warningDays:   warningDays,
	}
}

// Start schedules the daily run at 06:00 UTC.
func (r *MaintenanceReminder) Start() error {
	var err error
	r.jobID, err = r.cronScheduler.AddFunc("0 0 6 * * *", func() {
		log.Println("Running scheduled maintenance reminder check")
		r.runCheck()
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}
	r.cronScheduler.Start()
	log.Printf("Maintenance reminder started, warning window %d days", r.warningDays)
	return nil
}

// Stop terminates the reminder scheduler.
func (r *MaintenanceReminder) Stop() {
	if r.cronScheduler != nil {
		r.cronScheduler.Stop()
		log.Println("Maintenance reminder stopped")
	}
}

func (r *MaintenanceReminder) runCheck() {
	cutoff := time.Now().UTC().AddDate(0, 0, r.warningDays)

	var schedules []Models.MaintenanceSchedule
	err := r.db.Where("next_maintenance_date IS NOT NULL AND next_maintenance_date <= ?", cutoff).
		Find(&schedules).Error
	if err != nil {
		log.Printf("Failed to load due maintenance schedules: %v", err)
		return
	}
	if len(schedules) == 0 {
		return
	}
	log.Printf("Found %d maintenance schedules due within %d days", len(schedules), r.warningDays)

	for i := range schedules {
		Notifications.NotifyMaintenanceDue(r.db, &schedules[i])
	}
	r.sendDigestEmail(schedules)
}

// sendDigestEmail mails one summary of everything due to the address in
// MAINTENANCE_REMINDER_EMAIL. Skipped when unconfigured.
func (r *MaintenanceReminder) sendDigestEmail(schedules []Models.MaintenanceSchedule) {
	recipient := os.Getenv("MAINTENANCE_REMINDER_EMAIL")
	if recipient == "" {
		return
	}

	body := "The following maintenance schedules are due:\n\n"
	for _, schedule := range schedules {
		body += fmt.Sprintf("- Schedule %d (control point %d): due %s\n",
			schedule.ID, schedule.ControlPointID,
			schedule.NextMaintenanceDate.Format("2006-01-02"))
	}

	message := Models.EmailMessage{
		To:      []string{recipient},
		Subject: fmt.Sprintf("Maintenance due: %d schedules", len(schedules)),
		Body:    body,
	}
	if err := email.SendEmail(email.ConfigFromEnv(), message); err != nil {
		log.Printf("Failed to send maintenance digest: %v", err)
	}
}
