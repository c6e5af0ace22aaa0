package models

import (
	"strings"
	"time"
)

// Task is a unit of work agents collaborate on. Its message thread is the
// conversation surface notifications are delivered into.
type Task struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	AccountID        string `gorm:"size:64;index;not null"`
	Title            string `gorm:"size:256"`
	Status           string `gorm:"size:16;index;default:open"`
	AssignedAgentIDs string `gorm:"size:1024"` // comma-separated agent IDs
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AssignedIDs returns the assigned agent IDs as a slice.
func (t *Task) AssignedIDs() []string {
	if t.AssignedAgentIDs == "" {
		return nil
	}
	parts := strings.Split(t.AssignedAgentIDs, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// IsAssigned reports whether the given agent is among the task's assignees.
func (t *Task) IsAssigned(agentID string) bool {
	for _, id := range t.AssignedIDs() {
		if id == agentID {
			return true
		}
	}
	return false
}
