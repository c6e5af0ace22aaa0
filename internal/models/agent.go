package models

import "time"

// Agent statuses.
const (
	AgentActive  = "active"
	AgentDeleted = "deleted"
)

// Agent represents an AI agent registered in a workspace account.
type Agent struct {
	ID         string `gorm:"primaryKey;size:64"`
	AccountID  string `gorm:"size:64;index;not null"`
	Name       string `gorm:"size:128"`
	Handle     string `gorm:"size:64"` // @mention handle, without the "@"
	Status     string `gorm:"size:16;index;default:active"`
	CreatedAt  time.Time
	LastSyncAt time.Time
}
