// Package delivery implements the poll-cycle orchestrator that drains
// pending notifications to agents through the gateway, one session at a
// time, with bounded no-response retries.
package delivery

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/switchboardhq/switchboard/internal/gateway"
	"github.com/switchboardhq/switchboard/internal/models"
	"github.com/switchboardhq/switchboard/internal/store"
	"github.com/switchboardhq/switchboard/internal/tools"
)

// Store is the store surface the scheduler consumes.
type Store interface {
	GetNotificationsForDelivery(ctx context.Context, accountID string, limit int) ([]models.Notification, error)
	GetDeliveryContext(ctx context.Context, accountID string, notificationID uint) (*store.DeliveryContext, error)
	MarkNotificationDelivered(ctx context.Context, notificationID uint) error
	MarkNotificationDeliveryEnded(ctx context.Context, notificationID uint, reason string) error
	CreateMessageFromAgent(ctx context.Context, agentID string, taskID uint, content string, suppressAgentNotifications bool) error
	LogDelivery(ctx context.Context, entry models.DeliveryLog) error
}

// Gateway is the protocol client surface the scheduler consumes.
type Gateway interface {
	Send(ctx context.Context, sessionKey, message string, opts gateway.SendOpts) (*gateway.Reply, error)
	SendToolResults(ctx context.Context, sessionKey string, outputs []gateway.ToolOutput) (string, error)
}

// Alerter posts operator alerts. Best-effort; errors are logged, never
// propagated into the pipeline.
type Alerter interface {
	Post(ctx context.Context, text string) error
}

// failStreakAlert is the number of consecutive failing cycles after which
// the operator is alerted once per streak.
const failStreakAlert = 3

// Options holds parameters for creating a Scheduler.
type Options struct {
	Store     Store
	Gateway   Gateway
	Registry  *gateway.Registry
	Tools     tools.Runner // optional
	Alerts    Alerter      // optional
	AccountID string

	PollInterval  time.Duration
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	BatchSize     int
	MaxNoResponse int // consecutive empty replies before exhaustion
	MaxSessions   int // concurrent session partitions per cycle

	Out io.Writer // operator output; defaults to io.Discard
}

// Scheduler owns all process-wide delivery state: the counters, the
// per-notification retry map, and the session registry. Construct one per
// process and pass it to the daemon entry point.
type Scheduler struct {
	store    Store
	gateway  Gateway
	registry *gateway.Registry
	tools    tools.Runner
	alerts   Alerter

	accountID     string
	pollInterval  time.Duration
	backoffBase   time.Duration
	backoffMax    time.Duration
	batchSize     int
	maxNoResponse int
	maxSessions   int
	out           io.Writer

	state   *state
	retries *retryTracker

	// streak counts consecutive failing cycles. Cycles are serialized by
	// the daemon loop, so no lock is needed.
	streak int
}

// New creates a Scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("delivery: store is required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("delivery: gateway is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("delivery: registry is required")
	}
	if opts.AccountID == "" {
		return nil, fmt.Errorf("delivery: account ID is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 5 * time.Second
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 5 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MaxNoResponse <= 0 {
		opts.MaxNoResponse = 3
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 8
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	return &Scheduler{
		store:         opts.Store,
		gateway:       opts.Gateway,
		registry:      opts.Registry,
		tools:         opts.Tools,
		alerts:        opts.Alerts,
		accountID:     opts.AccountID,
		pollInterval:  opts.PollInterval,
		backoffBase:   opts.BackoffBase,
		backoffMax:    opts.BackoffMax,
		batchSize:     opts.BatchSize,
		maxNoResponse: opts.MaxNoResponse,
		maxSessions:   opts.MaxSessions,
		out:           opts.Out,
		state:         &state{},
		retries:       newRetryTracker(),
	}, nil
}

// State returns a snapshot of the delivery counters.
func (s *Scheduler) State() Snapshot {
	return s.state.snapshot()
}

// RunOneCycle drains one batch of pending notifications and returns the
// delay before the next cycle: the steady-state interval when nothing
// failed, a capped exponential backoff otherwise. A candidate-fetch failure
// is the only condition that aborts a cycle outright.
func (s *Scheduler) RunOneCycle(ctx context.Context) (time.Duration, error) {
	refs, err := s.store.GetNotificationsForDelivery(ctx, s.accountID, s.batchSize)
	if err != nil {
		s.state.setLastError(err.Error())
		return s.pollInterval, fmt.Errorf("delivery: fetch candidates: %w", err)
	}
	if len(refs) == 0 {
		return s.pollInterval, nil
	}

	// Contexts are fetched fresh every cycle and partitioned by session
	// key. Partition order follows first appearance so per-session
	// ordering matches notification age.
	partitions := make(map[string][]*store.DeliveryContext)
	var order []string
	for _, ref := range refs {
		dc, err := s.store.GetDeliveryContext(ctx, s.accountID, ref.ID)
		if err != nil {
			// Left pending: a transient read failure must not drop work.
			log.Printf("delivery: context for notification %d: %v", ref.ID, err)
			continue
		}
		if dc == nil {
			log.Printf("delivery: notification %d vanished, leaving for next cycle", ref.ID)
			continue
		}
		if dc.SessionKey == "" {
			// Undeliverable, not retryable: remove it from the queue
			// without a gateway call.
			s.finishSkip(ctx, dc, "no delivery session key")
			continue
		}
		if _, seen := partitions[dc.SessionKey]; !seen {
			order = append(order, dc.SessionKey)
		}
		partitions[dc.SessionKey] = append(partitions[dc.SessionKey], dc)
	}

	counts := s.runPartitions(ctx, partitions, order)

	if counts[OutcomeFailed] == 0 && counts[OutcomeRetryPending] == 0 {
		s.streak = 0
		return s.pollInterval, nil
	}

	s.streak++
	if s.streak == failStreakAlert {
		s.alert(fmt.Sprintf("Delivery has failed for %d consecutive cycles. Last error: %s",
			s.streak, s.state.snapshot().LastError))
	}
	return backoffDelay(s.backoffBase, s.backoffMax, s.streak), nil
}

// runPartitions executes each session partition sequentially within itself
// and all partitions concurrently with respect to each other, bounded by
// maxSessions.
func (s *Scheduler) runPartitions(ctx context.Context, partitions map[string][]*store.DeliveryContext, order []string) map[Outcome]int {
	var (
		mu     sync.Mutex
		counts = make(map[Outcome]int)
		wg     sync.WaitGroup
	)
	sem := make(chan struct{}, s.maxSessions)

	for _, key := range order {
		items := partitions[key]
		wg.Add(1)
		go func(items []*store.DeliveryContext) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			for _, dc := range items {
				outcome := s.deliverOne(ctx, dc)
				mu.Lock()
				counts[outcome]++
				mu.Unlock()
			}
		}(items)
	}

	wg.Wait()
	return counts
}

// alert posts an operator alert in the background. Best-effort.
func (s *Scheduler) alert(text string) {
	if s.alerts == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.alerts.Post(ctx, text); err != nil {
			log.Printf("delivery: alert: %v", err)
		}
	}()
}
