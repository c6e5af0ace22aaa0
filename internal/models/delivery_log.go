package models

import "time"

// DeliveryLog records the outcome of one delivery attempt for diagnostics
// and the dashboard feed.
type DeliveryLog struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	NotificationID uint   `gorm:"index;not null"`
	AgentID        string `gorm:"size:64;index"`
	SessionKey     string `gorm:"size:128"`
	Outcome        string `gorm:"size:16;index"`
	Detail         string `gorm:"size:1024"`
	CreatedAt      time.Time
}
