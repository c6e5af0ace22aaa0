// Package store implements the notification/task/message/agent store the
// delivery scheduler consumes, backed by GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/switchboardhq/switchboard/internal/models"
)

// Store wraps a GORM connection with the query and mutation surface the
// scheduler consumes.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetNotificationsForDelivery returns up to limit pending notifications for
// the account, oldest first.
func (s *Store) GetNotificationsForDelivery(ctx context.Context, accountID string, limit int) ([]models.Notification, error) {
	var notifs []models.Notification
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, models.NotificationPending).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&notifs).Error
	if err != nil {
		return nil, fmt.Errorf("store: notifications for delivery: %w", err)
	}
	return notifs, nil
}

// MarkNotificationDelivered marks a notification delivered. Idempotent:
// marking an already-delivered notification is not an error.
func (s *Store) MarkNotificationDelivered(ctx context.Context, notificationID uint) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Updates(map[string]interface{}{
			"status":       models.NotificationDelivered,
			"delivered_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("store: mark delivered %d: %w", notificationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: notification not found: %d", notificationID)
	}
	return nil
}

// MarkNotificationDeliveryEnded records a failed delivery attempt and leaves
// the notification pending so a future cycle retries it.
func (s *Store) MarkNotificationDeliveryEnded(ctx context.Context, notificationID uint, reason string) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Updates(map[string]interface{}{
			"status":     models.NotificationPending,
			"last_error": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("store: mark delivery ended %d: %w", notificationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: notification not found: %d", notificationID)
	}
	return nil
}

// CreateMessageFromAgent posts a message into a task thread on behalf of an
// agent. Unless suppressed, thread-reply notifications fan out to the task's
// other assigned agents.
func (s *Store) CreateMessageFromAgent(ctx context.Context, agentID string, taskID uint, content string, suppressAgentNotifications bool) error {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return fmt.Errorf("store: create message: task %d: %w", taskID, err)
	}

	msg := models.Message{
		AccountID: task.AccountID,
		TaskID:    taskID,
		FromType:  models.SenderAgent,
		FromID:    agentID,
		Body:      content,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("store: create message: %w", err)
	}

	if suppressAgentNotifications {
		return nil
	}

	for _, assignee := range task.AssignedIDs() {
		if assignee == agentID {
			continue
		}
		notif := models.Notification{
			AccountID:     task.AccountID,
			Type:          models.NotifyThreadReply,
			RecipientType: models.RecipientAgent,
			RecipientID:   assignee,
			TaskID:        taskID,
			MessageID:     msg.ID,
			Status:        models.NotificationPending,
			CreatedAt:     time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(&notif).Error; err != nil {
			return fmt.Errorf("store: fan out notification to %s: %w", assignee, err)
		}
	}
	return nil
}

// LogDelivery records the outcome of one delivery attempt.
func (s *Store) LogDelivery(ctx context.Context, entry models.DeliveryLog) error {
	entry.CreatedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("store: log delivery: %w", err)
	}
	return nil
}

// PendingCount returns the number of pending notifications for the account.
func (s *Store) PendingCount(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("account_id = ? AND status = ?", accountID, models.NotificationPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("store: pending count: %w", err)
	}
	return count, nil
}

// ActiveAgents returns the account's active agents, used to register their
// main gateway sessions at startup and on sync.
func (s *Store) ActiveAgents(ctx context.Context, accountID string) ([]models.Agent, error) {
	var agents []models.Agent
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, models.AgentActive).
		Find(&agents).Error
	if err != nil {
		return nil, fmt.Errorf("store: active agents: %w", err)
	}
	return agents, nil
}

// RecentDeliveries returns the most recent delivery log rows, newest first.
func (s *Store) RecentDeliveries(ctx context.Context, limit int) ([]models.DeliveryLog, error) {
	var logs []models.DeliveryLog
	err := s.db.WithContext(ctx).
		Order("id DESC").Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent deliveries: %w", err)
	}
	return logs, nil
}

// DeliveryCountsSince returns delivery log outcome counts since the given
// time, keyed by outcome. Used by the digest.
func (s *Store) DeliveryCountsSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	type row struct {
		Outcome string
		N       int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.DeliveryLog{}).
		Select("outcome, count(*) as n").
		Where("created_at >= ?", since).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: delivery counts: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Outcome] = r.N
	}
	return counts, nil
}

// notFound reports whether err is a GORM record-not-found.
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
