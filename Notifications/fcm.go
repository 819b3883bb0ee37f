package Notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"Warden/Models"
)

var firebaseClient *messaging.Client
var ctx = context.Background()

// InitFirebase sets up the FCM client from the service account file named by
// FIREBASE_CREDENTIALS. Call once at startup; when unset the push sink stays
// disabled and notifications degrade to log lines.
func InitFirebase() error {
	credentials := os.Getenv("FIREBASE_CREDENTIALS")
	if credentials == "" {
		log.Println("FIREBASE_CREDENTIALS not set, push notifications disabled")
		return nil
	}
	opt := option.WithCredentialsFile(credentials)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing Firebase app: %v", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting Messaging client: %v", err)
	}

	firebaseClient = client
	log.Println("Firebase initialized successfully")
	return nil
}

// NotifyFlaggedExecution pushes a fraud-flag alert for an execution to every
// registered supervisor device of the tenant. Fire and forget: failures are
// logged, never propagated to the scan path.
func NotifyFlaggedExecution(db *gorm.DB, rec *Models.ExecutionRecord) {
	body := fmt.Sprintf("Execution %d at control point %d was flagged for review", rec.ID, rec.ControlPointID)
	data := map[string]string{
		"execution_id":     strconv.Itoa(int(rec.ID)),
		"control_point_id": strconv.Itoa(int(rec.ControlPointID)),
		"worker_id":        strconv.Itoa(int(rec.WorkerID)),
		"quick_entry":      strconv.FormatBool(rec.QuickEntry),
		"deferred_entry":   strconv.FormatBool(rec.DeferredEntry),
	}
	broadcast(db, rec.TenantID, "Suspicious execution", body, data)
}

// NotifyMaintenanceDue pushes an upcoming-maintenance warning.
func NotifyMaintenanceDue(db *gorm.DB, schedule *Models.MaintenanceSchedule) {
	body := fmt.Sprintf("Maintenance on control point %d is due %s",
		schedule.ControlPointID, schedule.NextMaintenanceDate.Format("2006-01-02"))
	data := map[string]string{
		"schedule_id":      strconv.Itoa(int(schedule.ID)),
		"control_point_id": strconv.Itoa(int(schedule.ControlPointID)),
		"due_date":         schedule.NextMaintenanceDate.Format("2006-01-02"),
	}
	broadcast(db, schedule.TenantID, "Maintenance due", body, data)
}

func broadcast(db *gorm.DB, tenantID uint, title, body string, data map[string]string) {
	if firebaseClient == nil {
		log.Printf("notification (push disabled): %s: %s", title, body)
		return
	}

	var tokens []Models.FCMToken
	if err := db.Where("tenant_id = ?", tenantID).Find(&tokens).Error; err != nil {
		log.Printf("Failed to load FCM tokens: %v", err)
		return
	}

	for _, token := range tokens {
		message := &messaging.Message{
			Token: token.Value,
			Data:  data,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: "default",
				},
			},
		}
		if _, err := firebaseClient.Send(ctx, message); err != nil {
			log.Printf("Error sending notification to token %d: %v", token.ID, err)
		}
	}
}
