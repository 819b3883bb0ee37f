package Models

import (
	"time"

	"gorm.io/gorm"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// MaintenanceSchedule describes recurring maintenance on a control point
// asset. LastMaintenanceDate/NextMaintenanceDate are advanced by the
// execution engine when a maintenance execution completes.
type MaintenanceSchedule struct {
	gorm.Model
	TenantID       uint   `json:"tenant_id" gorm:"index;not null"`
	ControlPointID uint   `json:"control_point_id" gorm:"index;not null"`
	Description    string `json:"description"`

	Frequency Frequency `json:"frequency" gorm:"type:varchar(20)"`
	// Interval multiplies the frequency: MONTHLY with interval 3 recurs
	// every three months. Must be positive; validated at the API boundary.
	Interval int `json:"interval" gorm:"default:1"`

	LastMaintenanceDate *time.Time `json:"last_maintenance_date"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
}

func (MaintenanceSchedule) TableName() string {
	return "maintenance_schedules"
}
