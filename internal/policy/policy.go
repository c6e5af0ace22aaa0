// Package policy decides whether a notification should reach its agent.
// A negative decision is terminal: the notification is marked delivered with
// a skip outcome and never retried.
package policy

import (
	"github.com/switchboardhq/switchboard/internal/models"
	"github.com/switchboardhq/switchboard/internal/store"
)

// Decision is the result of an eligibility check.
type Decision struct {
	Eligible bool
	Reason   string // skip reason when not eligible
}

func skip(reason string) Decision {
	return Decision{Reason: reason}
}

var eligible = Decision{Eligible: true}

// Check evaluates delivery eligibility for one context. Checks run in a
// fixed order and the first failure wins.
func Check(dc *store.DeliveryContext) Decision {
	n := dc.Notification

	if n.RecipientType != models.RecipientAgent {
		return skip("recipient is not an agent")
	}
	if dc.Agent == nil {
		return skip("agent not found or deleted")
	}
	if n.TaskID != 0 && dc.Task == nil {
		return skip("task deleted")
	}
	if dc.Task != nil && !dc.Task.IsAssigned(dc.Agent.ID) {
		return skip("recipient not assigned to task")
	}
	if isStaleThread(dc) {
		return skip("stale thread")
	}
	return eligible
}

// isStaleThread reports whether a mention or thread-reply notification
// points at a message that is no longer the latest in its thread. Delivering
// it would have the agent answer an already-superseded message.
func isStaleThread(dc *store.DeliveryContext) bool {
	n := dc.Notification
	if n.Type != models.NotifyMention && n.Type != models.NotifyThreadReply {
		return false
	}
	if dc.Message == nil || len(dc.Thread) == 0 {
		return false
	}
	latest := dc.Thread[len(dc.Thread)-1]
	return latest.ID != dc.Message.ID
}
