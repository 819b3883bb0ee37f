package Models

import (
	"gorm.io/gorm"
)

// ControlPoint is a physical location or asset instrumented with a scannable
// RFID/NFC token. The chip UID is written once when the tag is enrolled; the
// reader-side anti-clone verification happens before events reach this
// backend, so the engine only checks existence and active state.
type ControlPoint struct {
	gorm.Model
	TenantID uint   `json:"tenant_id" gorm:"index;not null"`
	Name     string `json:"name" gorm:"size:255;not null"`
	SiteID   *uint  `json:"site_id"`
	ZoneID   *uint  `json:"zone_id"`
	ChipUID  string `json:"chip_uid" gorm:"size:64;index"`
	Active   bool   `json:"active" gorm:"default:true"`
}

func (ControlPoint) TableName() string {
	return "control_points"
}
