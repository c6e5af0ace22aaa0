package alert

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// DigestStats holds delivery counts for one digest period.
type DigestStats struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Delivered   int
	RetryPend   int
	Exhausted   int
	Failed      int
	Skipped     int
	Pending     int64 // queue depth at digest time
}

// quiet reports whether the period had no delivery activity at all.
func (s DigestStats) quiet() bool {
	return s.Delivered == 0 && s.RetryPend == 0 && s.Exhausted == 0 &&
		s.Failed == 0 && s.Skipped == 0 && s.Pending == 0
}

// StatsFunc computes digest stats for the window starting at since.
type StatsFunc func(ctx context.Context, since time.Time) (DigestStats, error)

// poster is the posting surface the digest loop needs.
type poster interface {
	Post(ctx context.Context, text string) error
}

// RunDigest posts a delivery digest on the given 5-field cron schedule until
// ctx is cancelled. Quiet periods are suppressed. Invalid expressions are
// caught by ValidateCron at startup; here they fall back to a daily cadence.
func RunDigest(ctx context.Context, expr string, stats StatsFunc, dest poster) {
	lastFire := time.Now()
	for {
		wait := nextCronDuration(expr)
		if wait == 0 {
			wait = 24 * time.Hour
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		fireCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		report, err := stats(fireCtx, lastFire)
		if err != nil {
			log.Printf("alert: digest stats: %v", err)
			cancel()
			continue
		}
		lastFire = time.Now()

		if report.quiet() {
			cancel()
			continue
		}
		if err := dest.Post(fireCtx, FormatDigest(report)); err != nil {
			log.Printf("alert: post digest: %v", err)
		}
		cancel()
	}
}

// FormatDigest renders digest stats as a chat-friendly text block.
func FormatDigest(s DigestStats) string {
	var lines []string
	lines = append(lines, "*Delivery Digest*")
	lines = append(lines, fmt.Sprintf("Period: %s – %s",
		s.PeriodStart.Format("Jan 2 15:04"), s.PeriodEnd.Format("Jan 2 15:04")))
	lines = append(lines, fmt.Sprintf("Delivered: %d", s.Delivered))
	if s.RetryPend > 0 {
		lines = append(lines, fmt.Sprintf("Awaiting retry: %d", s.RetryPend))
	}
	if s.Exhausted > 0 {
		lines = append(lines, fmt.Sprintf("Retry exhausted (fallback posted): %d", s.Exhausted))
	}
	if s.Failed > 0 {
		lines = append(lines, fmt.Sprintf("Failed: %d", s.Failed))
	}
	if s.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("Skipped: %d", s.Skipped))
	}
	lines = append(lines, fmt.Sprintf("Queue depth: %d", s.Pending))
	return strings.Join(lines, "\n")
}
