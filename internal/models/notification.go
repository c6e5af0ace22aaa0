package models

import "time"

// Notification types.
const (
	NotifyTaskAssigned = "task_assigned"
	NotifyMention      = "mention"
	NotifyThreadReply  = "thread_reply"
	NotifyStatusChange = "status_change"
)

// Notification delivery statuses.
const (
	NotificationPending   = "pending"
	NotificationDelivered = "delivered"
)

// Recipient types.
const (
	RecipientAgent = "agent"
	RecipientUser  = "user"
)

// Notification is a pending delivery to a recipient. The row is immutable
// once created except for its delivery status fields, which are mutated only
// through the store's mark-delivered / mark-delivery-ended calls.
type Notification struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	AccountID     string `gorm:"size:64;index;not null"`
	Type          string `gorm:"size:16;not null"`
	RecipientType string `gorm:"size:8;not null"`
	RecipientID   string `gorm:"size:64;not null"`
	TaskID        uint   `gorm:"index"`
	MessageID     uint
	Status        string `gorm:"size:16;index;default:pending"`
	DeliveredAt   *time.Time
	LastError     string `gorm:"size:1024"`
	CreatedAt     time.Time
}
