package store

import (
	"context"
	"fmt"

	"github.com/switchboardhq/switchboard/internal/models"
)

// DeliveryContext is a point-in-time snapshot assembled for one
// notification: the notification, its task (nil when deleted), the
// triggering message, the full ordered thread, the resolved agent (nil when
// the recipient cannot be resolved), and the derived session key (empty when
// none can be derived). Fetched fresh each poll cycle; never cached across
// cycles.
type DeliveryContext struct {
	Notification models.Notification
	Task         *models.Task
	Message      *models.Message
	Thread       []models.Message
	Agent        *models.Agent
	SessionKey   string
}

// GetDeliveryContext assembles the delivery context for a notification.
// Returns (nil, nil) when the notification itself has vanished; the caller
// leaves it for a future cycle.
func (s *Store) GetDeliveryContext(ctx context.Context, accountID string, notificationID uint) (*DeliveryContext, error) {
	var notif models.Notification
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&notif, notificationID).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: delivery context %d: %w", notificationID, err)
	}

	dc := &DeliveryContext{Notification: notif}

	if notif.TaskID != 0 {
		var task models.Task
		err := s.db.WithContext(ctx).First(&task, notif.TaskID).Error
		switch {
		case err == nil && task.Status != "deleted":
			dc.Task = &task
		case err != nil && !notFound(err):
			return nil, fmt.Errorf("store: delivery context %d: task: %w", notificationID, err)
		}
	}

	if notif.MessageID != 0 {
		var msg models.Message
		err := s.db.WithContext(ctx).First(&msg, notif.MessageID).Error
		switch {
		case err == nil:
			dc.Message = &msg
		case !notFound(err):
			return nil, fmt.Errorf("store: delivery context %d: message: %w", notificationID, err)
		}
	}

	if dc.Task != nil {
		err := s.db.WithContext(ctx).
			Where("task_id = ?", dc.Task.ID).
			Order("created_at ASC, id ASC").
			Find(&dc.Thread).Error
		if err != nil {
			return nil, fmt.Errorf("store: delivery context %d: thread: %w", notificationID, err)
		}
	}

	if notif.RecipientType == models.RecipientAgent {
		var agent models.Agent
		err := s.db.WithContext(ctx).
			Where("id = ? AND status = ?", notif.RecipientID, models.AgentActive).
			First(&agent).Error
		switch {
		case err == nil:
			dc.Agent = &agent
		case !notFound(err):
			return nil, fmt.Errorf("store: delivery context %d: agent: %w", notificationID, err)
		}
	}

	dc.SessionKey = SessionKeyFor(notif, dc.Agent)
	return dc, nil
}

// SessionKeyFor derives the delivery session key for a notification:
// task-scoped when the notification is bound to a task, the agent's main
// session otherwise, empty when no agent resolves.
func SessionKeyFor(n models.Notification, agent *models.Agent) string {
	if agent == nil {
		return ""
	}
	if n.TaskID != 0 {
		return fmt.Sprintf("task:%d:agent:%s", n.TaskID, agent.ID)
	}
	return fmt.Sprintf("agent:%s:main", agent.ID)
}
