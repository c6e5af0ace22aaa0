package policy

import (
	"testing"

	"github.com/switchboardhq/switchboard/internal/models"
	"github.com/switchboardhq/switchboard/internal/store"
)

func baseContext() *store.DeliveryContext {
	agent := &models.Agent{ID: "a1", Status: models.AgentActive}
	task := &models.Task{ID: 5, AssignedAgentIDs: "a1,a2"}
	msg := &models.Message{ID: 10, TaskID: 5}
	return &store.DeliveryContext{
		Notification: models.Notification{
			ID: 1, Type: models.NotifyMention,
			RecipientType: models.RecipientAgent, RecipientID: "a1",
			TaskID: 5, MessageID: 10,
		},
		Task:       task,
		Message:    msg,
		Thread:     []models.Message{{ID: 9, TaskID: 5}, *msg},
		Agent:      agent,
		SessionKey: "task:5:agent:a1",
	}
}

func TestCheck_Eligible(t *testing.T) {
	d := Check(baseContext())
	if !d.Eligible {
		t.Errorf("expected eligible, got skip %q", d.Reason)
	}
}

func TestCheck_NonAgentRecipient(t *testing.T) {
	dc := baseContext()
	dc.Notification.RecipientType = models.RecipientUser
	d := Check(dc)
	if d.Eligible || d.Reason != "recipient is not an agent" {
		t.Errorf("decision = %+v", d)
	}
}

func TestCheck_MissingAgent(t *testing.T) {
	dc := baseContext()
	dc.Agent = nil
	if d := Check(dc); d.Eligible {
		t.Error("expected skip for missing agent")
	}
}

func TestCheck_DeletedTask(t *testing.T) {
	dc := baseContext()
	dc.Task = nil
	d := Check(dc)
	if d.Eligible || d.Reason != "task deleted" {
		t.Errorf("decision = %+v", d)
	}
}

func TestCheck_NotAssigned(t *testing.T) {
	dc := baseContext()
	dc.Task.AssignedAgentIDs = "a2,a3"
	d := Check(dc)
	if d.Eligible || d.Reason != "recipient not assigned to task" {
		t.Errorf("decision = %+v", d)
	}
}

func TestCheck_StaleThread(t *testing.T) {
	dc := baseContext()
	dc.Thread = append(dc.Thread, models.Message{ID: 11, TaskID: 5})
	d := Check(dc)
	if d.Eligible || d.Reason != "stale thread" {
		t.Errorf("decision = %+v", d)
	}
}

func TestCheck_StaleThreadOnlyForThreadTypes(t *testing.T) {
	dc := baseContext()
	dc.Notification.Type = models.NotifyTaskAssigned
	dc.Thread = append(dc.Thread, models.Message{ID: 11, TaskID: 5})
	if d := Check(dc); !d.Eligible {
		t.Errorf("task_assigned should ignore thread position, got skip %q", d.Reason)
	}
}
