package Models

import (
	"gorm.io/gorm"
)

// User is a backend account (supervisor, admin, device account). Permission
// levels: 1 read, 2 operate, 3 manage, 4 admin.
type User struct {
	gorm.Model
	TenantID   uint   `json:"tenant_id" gorm:"index;not null"`
	Name       string `json:"name" gorm:"size:255"`
	Email      string `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission" gorm:"default:1"`
	// WorkerID links a device account to the worker it scans for.
	WorkerID *uint `json:"worker_id"`
}

func (User) TableName() string {
	return "users"
}
