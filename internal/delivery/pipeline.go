package delivery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/switchboardhq/switchboard/internal/gateway"
	"github.com/switchboardhq/switchboard/internal/models"
	"github.com/switchboardhq/switchboard/internal/noresponse"
	"github.com/switchboardhq/switchboard/internal/policy"
	"github.com/switchboardhq/switchboard/internal/store"
)

// Outcome is the terminal state of one delivery attempt.
type Outcome string

const (
	OutcomeSkipped      Outcome = "skipped"
	OutcomeDelivered    Outcome = "delivered"
	OutcomeRetryPending Outcome = "retry_pending"
	OutcomeExhausted    Outcome = "exhausted"
	OutcomeFailed       Outcome = "failed"
)

// deliverOne runs the full pipeline for one delivery context. Every error is
// converted into an outcome here; nothing propagates to the orchestrator or
// aborts sibling notifications.
func (s *Scheduler) deliverOne(ctx context.Context, dc *store.DeliveryContext) Outcome {
	n := dc.Notification

	if d := policy.Check(dc); !d.Eligible {
		s.finishSkip(ctx, dc, d.Reason)
		return OutcomeSkipped
	}
	key := dc.SessionKey
	if key == "" {
		s.finishSkip(ctx, dc, "no delivery session key")
		return OutcomeSkipped
	}

	// Task-scoped sessions are registered lazily on first send.
	if _, ok := s.registry.Lookup(key); !ok {
		s.registry.Register(key, dc.Agent.ID)
	}

	reply, err := s.gateway.Send(ctx, key, formatNotification(dc), gateway.SendOpts{})
	if err != nil {
		return s.finishFailed(ctx, dc, err)
	}

	text := reply.Text
	if len(reply.ToolCalls) > 0 {
		text, err = s.runToolCalls(ctx, key, reply)
		if err != nil {
			return s.finishFailed(ctx, dc, err)
		}
	}

	if noresponse.IsHeartbeat(text) {
		// Delivered, but a heartbeat no-op is never posted to the thread.
		s.markDelivered(ctx, n.ID)
		s.logOutcome(ctx, dc, OutcomeDelivered, "heartbeat no-op")
		return OutcomeDelivered
	}

	mentionPrefix := ""
	empty := strings.TrimSpace(text) == "" || noresponse.IsNoReplySignal(text)
	if !empty {
		if prefix, ok := noresponse.ParsePlaceholder(text); ok {
			empty = true
			mentionPrefix = prefix
		}
	}
	if empty {
		return s.handleNoResponse(ctx, dc, mentionPrefix)
	}

	// Genuine reply: post it into the thread and resolve the notification.
	if n.TaskID != 0 {
		if err := s.store.CreateMessageFromAgent(ctx, dc.Agent.ID, n.TaskID, text, false); err != nil {
			return s.finishFailed(ctx, dc, err)
		}
	}
	s.markDelivered(ctx, n.ID)
	s.state.noteDelivered()
	s.retries.clear(n.ID)
	s.registry.Touch(key)
	s.logOutcome(ctx, dc, OutcomeDelivered, "")
	return OutcomeDelivered
}

// handleNoResponse applies the bounded-retry policy for empty, no-reply, and
// placeholder replies.
func (s *Scheduler) handleNoResponse(ctx context.Context, dc *store.DeliveryContext, mentionPrefix string) Outcome {
	n := dc.Notification
	attempts := s.retries.bump(n.ID)

	if attempts < s.maxNoResponse {
		// Left undelivered so the next cycle retries it.
		s.state.noteFailed(fmt.Sprintf("no response from agent %s for notification %d (attempt %d/%d)",
			dc.Agent.ID, n.ID, attempts, s.maxNoResponse))
		s.logOutcome(ctx, dc, OutcomeRetryPending, fmt.Sprintf("attempt %d/%d", attempts, s.maxNoResponse))
		return OutcomeRetryPending
	}

	// Exhausted: post the synthesized fallback and resolve the
	// notification. The failed counter is not incremented for this attempt.
	fallback := noresponse.BuildFallbackMessage(mentionPrefix)
	if n.TaskID != 0 {
		if err := s.store.CreateMessageFromAgent(ctx, dc.Agent.ID, n.TaskID, fallback, true); err != nil {
			log.Printf("delivery: post fallback for notification %d: %v", n.ID, err)
		}
	}
	s.markDelivered(ctx, n.ID)
	s.state.noteExhausted()
	s.retries.clear(n.ID)
	s.logOutcome(ctx, dc, OutcomeExhausted, fmt.Sprintf("fallback posted after %d attempts", attempts))
	s.alert(fmt.Sprintf("Agent %s produced no response for notification %d after %d attempts; fallback posted.",
		dc.Agent.ID, n.ID, attempts))
	return OutcomeExhausted
}

// runToolCalls executes the reply's tool calls and submits their outputs;
// the returned text continues through the pipeline as if it were the
// original reply.
func (s *Scheduler) runToolCalls(ctx context.Context, key string, reply *gateway.Reply) (string, error) {
	outputs := make([]gateway.ToolOutput, 0, len(reply.ToolCalls))
	for _, call := range reply.ToolCalls {
		var out string
		if s.tools == nil {
			out = fmt.Sprintf("error: no tool runner configured for %q", call.Name)
		} else if result, err := s.tools.Run(ctx, call); err != nil {
			out = "error: " + err.Error()
		} else {
			out = result
		}
		outputs = append(outputs, gateway.ToolOutput{CallID: call.CallID, Output: out})
	}
	return s.gateway.SendToolResults(ctx, key, outputs)
}

// finishSkip resolves an undeliverable notification: marked delivered so it
// does not stick in the queue, but no gateway call is made and no delivery
// counter moves.
func (s *Scheduler) finishSkip(ctx context.Context, dc *store.DeliveryContext, reason string) {
	s.markDelivered(ctx, dc.Notification.ID)
	s.logOutcome(ctx, dc, OutcomeSkipped, reason)
}

// finishFailed converts a gateway or store error into a Failed outcome: the
// notification is released back to pending and retried on a future cycle.
func (s *Scheduler) finishFailed(ctx context.Context, dc *store.DeliveryContext, err error) Outcome {
	n := dc.Notification
	s.state.noteFailed(err.Error())
	if endErr := s.store.MarkNotificationDeliveryEnded(ctx, n.ID, err.Error()); endErr != nil {
		log.Printf("delivery: mark delivery ended for %d: %v", n.ID, endErr)
	}
	s.logOutcome(ctx, dc, OutcomeFailed, err.Error())
	return OutcomeFailed
}

// markDelivered resolves a notification, logging rather than propagating
// store failures.
func (s *Scheduler) markDelivered(ctx context.Context, notificationID uint) {
	if err := s.store.MarkNotificationDelivered(ctx, notificationID); err != nil {
		log.Printf("delivery: mark delivered for %d: %v", notificationID, err)
	}
}

// logOutcome records a delivery attempt in the delivery log. Best-effort.
func (s *Scheduler) logOutcome(ctx context.Context, dc *store.DeliveryContext, outcome Outcome, detail string) {
	agentID := ""
	if dc.Agent != nil {
		agentID = dc.Agent.ID
	}
	entry := models.DeliveryLog{
		NotificationID: dc.Notification.ID,
		AgentID:        agentID,
		SessionKey:     dc.SessionKey,
		Outcome:        string(outcome),
		Detail:         detail,
	}
	if err := s.store.LogDelivery(ctx, entry); err != nil {
		log.Printf("delivery: log outcome for %d: %v", dc.Notification.ID, err)
	}
}

// formatNotification composes the message delivered to the agent for one
// notification.
func formatNotification(dc *store.DeliveryContext) string {
	n := dc.Notification
	var b strings.Builder

	switch n.Type {
	case models.NotifyTaskAssigned:
		fmt.Fprintf(&b, "You have been assigned to task #%d: %s", n.TaskID, taskTitle(dc))
	case models.NotifyMention:
		fmt.Fprintf(&b, "You were mentioned in task #%d (%s).", n.TaskID, taskTitle(dc))
	case models.NotifyThreadReply:
		fmt.Fprintf(&b, "New reply in task #%d (%s).", n.TaskID, taskTitle(dc))
	case models.NotifyStatusChange:
		fmt.Fprintf(&b, "Status changed on task #%d (%s).", n.TaskID, taskTitle(dc))
	default:
		fmt.Fprintf(&b, "Notification (%s) on task #%d.", n.Type, n.TaskID)
	}

	if dc.Message != nil {
		fmt.Fprintf(&b, "\n\n%s", dc.Message.Body)
	}
	return b.String()
}

func taskTitle(dc *store.DeliveryContext) string {
	if dc.Task != nil {
		return dc.Task.Title
	}
	return "unknown task"
}
