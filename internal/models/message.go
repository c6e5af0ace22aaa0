package models

import "time"

// Message sender types.
const (
	SenderAgent = "agent"
	SenderUser  = "user"
)

// Message is one entry in a task's conversation thread.
type Message struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AccountID string `gorm:"size:64;index;not null"`
	TaskID    uint   `gorm:"index;not null"`
	FromType  string `gorm:"size:8;not null"`
	FromID    string `gorm:"size:64;not null"`
	Body      string `gorm:"type:text"`
	CreatedAt time.Time
}
