package delivery

import (
	"sync"
	"time"
)

// retryTracker counts consecutive empty replies per notification. Entries
// are process-lifetime state: created on the first empty reply, cleared on
// any genuine reply or on exhaustion. Counters reset on restart.
type retryTracker struct {
	mu     sync.Mutex
	counts map[uint]int
}

func newRetryTracker() *retryTracker {
	return &retryTracker{counts: make(map[uint]int)}
}

// bump increments the counter for a notification and returns the new value.
func (r *retryTracker) bump(notificationID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[notificationID]++
	return r.counts[notificationID]
}

// clear evicts the counter for a notification.
func (r *retryTracker) clear(notificationID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, notificationID)
}

// backoffDelay computes the inter-cycle delay after streak consecutive
// failing cycles: base doubled per extra cycle, capped at max.
func backoffDelay(base, max time.Duration, streak int) time.Duration {
	if streak <= 0 {
		return base
	}
	delay := base
	for i := 1; i < streak; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
