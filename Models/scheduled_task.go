package Models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed out of the status.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// ScheduledTask is a planned unit of field work assigned to a worker at a
// control point. It is created by the scheduling endpoints and mutated only
// by the execution engine; tasks are never deleted, only status-transitioned.
type ScheduledTask struct {
	gorm.Model
	TenantID       uint  `json:"tenant_id" gorm:"index;not null"`
	WorkerID       uint  `json:"worker_id" gorm:"index;not null"`
	TeamID         *uint `json:"team_id"`
	ControlPointID uint  `json:"control_point_id" gorm:"index;not null"`
	TemplateID     *uint `json:"template_id"`

	ScheduledDate time.Time `json:"scheduled_date" gorm:"not null"`
	StartTime     string    `json:"start_time"` // "HH:MM", tenant local
	EndTime       string    `json:"end_time"`
	Recurrence    string    `json:"recurrence" gorm:"default:none"` // none, daily, weekly

	// RequiresDoubleScan is set at creation and immutable afterwards. A task
	// with it set can only be completed through the first-scan/second-scan
	// protocol, never through a single-scan submission.
	RequiresDoubleScan bool `json:"requires_double_scan"`

	Status TaskStatus `json:"status" gorm:"type:varchar(20);index;default:PENDING"`

	// ExecutionID points at the execution record that started or completed
	// this task. At most one, stamped by the engine.
	ExecutionID *uint `json:"execution_id"`
}

func (ScheduledTask) TableName() string {
	return "scheduled_tasks"
}
