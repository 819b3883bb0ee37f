package Models

import (
	"gorm.io/gorm"
)

// Worker is a field agent who scans control points. Kept separate from User:
// a worker may exist without a backend login (the mobile app authenticates
// the device, not the worker row).
type Worker struct {
	gorm.Model
	TenantID uint   `json:"tenant_id" gorm:"index;not null"`
	Name     string `json:"name" gorm:"size:255;not null"`
	Phone    string `json:"phone" gorm:"size:50"`
	Email    string `json:"email" gorm:"size:255"`
	TeamID   *uint  `json:"team_id"`
	Active   bool   `json:"active" gorm:"default:true"`
}

func (Worker) TableName() string {
	return "workers"
}
