package Models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExecutionStatus string

const (
	ExecutionStarted    ExecutionStatus = "STARTED"
	ExecutionInProgress ExecutionStatus = "IN_PROGRESS"
	ExecutionCompleted  ExecutionStatus = "COMPLETED"
	ExecutionAborted    ExecutionStatus = "ABORTED"
)

func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionAborted
}

// ExecutionRecord is the evidentiary record of work performed at a control
// point. Records are append-only: once SubmittedAt/CompletedAt is set the
// scan timestamps and form payload are never rewritten, only the fraud flags
// and review annotations may be added after the fact.
type ExecutionRecord struct {
	gorm.Model
	TenantID        uint  `json:"tenant_id" gorm:"index;not null"`
	ScheduledTaskID *uint `json:"scheduled_task_id" gorm:"index"` // nil for ad-hoc executions
	ControlPointID  uint  `json:"control_point_id" gorm:"index;not null"`
	WorkerID        uint  `json:"worker_id" gorm:"index;not null"`

	// MaintenanceScheduleID links maintenance executions to the schedule
	// whose next due date is recomputed on completion.
	MaintenanceScheduleID *uint `json:"maintenance_schedule_id" gorm:"index"`

	Status ExecutionStatus `json:"status" gorm:"type:varchar(20);index;default:STARTED"`

	// ScannedAt is the primary scan time. For double-scan executions it
	// mirrors FirstScanAt.
	ScannedAt    time.Time  `json:"scanned_at" gorm:"not null"`
	FirstScanAt  *time.Time `json:"first_scan_at"`
	SecondScanAt *time.Time `json:"second_scan_at"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`

	// ActualDurationSec is CompletedAt - StartedAt, zero when either side is
	// unknown.
	ActualDurationSec int64 `json:"actual_duration_sec"`

	// FormData is the tenant-defined payload. Opaque to the engine; stored
	// and forwarded, never inspected.
	FormData datatypes.JSON `json:"form_data"`

	Observations      string `json:"observations" gorm:"type:text"`
	IssuesFound       string `json:"issues_found" gorm:"type:text"`
	CorrectiveActions string `json:"corrective_actions" gorm:"type:text"`
	PhotoPath         string `json:"photo_path"`

	// Fraud flags. Advisory only: they never block a transition, they are
	// persisted for human review. QuickEntry and DeferredEntry are set by the
	// timing heuristics; the remaining four belong to payload analysis and
	// default to false here.
	QuickEntry      bool `json:"quick_entry"`
	DeferredEntry   bool `json:"deferred_entry"`
	RepeatedValue   bool `json:"repeated_value"`
	OutOfRange      bool `json:"out_of_range"`
	OCRDeviation    bool `json:"ocr_deviation"`
	SuspiciousValue bool `json:"suspicious_value"`
}

func (ExecutionRecord) TableName() string {
	return "execution_records"
}

// Flagged reports whether any fraud flag is set on the record.
func (r *ExecutionRecord) Flagged() bool {
	return r.QuickEntry || r.DeferredEntry || r.RepeatedValue ||
		r.OutOfRange || r.OCRDeviation || r.SuspiciousValue
}
