package delivery

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Run drives the scheduler until ctx is cancelled. Each cycle's returned
// delay sets the wait before the next one, which inherently serializes
// cycles: a still-running cycle can never overlap a new one, so the
// per-session exclusivity guarantee holds across cycle boundaries too.
func (s *Scheduler) Run(ctx context.Context) error {
	fmt.Fprintf(s.out, "Delivery daemon starting (poll every %s, batch %d)...\n", s.pollInterval, s.batchSize)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(s.out, "Delivery daemon stopped.\n")
			return nil
		default:
		}

		delay, err := s.RunOneCycle(ctx)
		if err != nil {
			log.Printf("delivery cycle error: %v", err)
		}
		sleepWithContext(ctx, delay)
	}
}

// sleepWithContext sleeps for duration d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
