package delivery

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the process-wide delivery counters,
// exposed to the dashboard and status CLI.
type Snapshot struct {
	Delivered      int       `json:"delivered"`
	Failed         int       `json:"failed"`
	RetryExhausted int       `json:"retry_exhausted"`
	LastDeliveryAt time.Time `json:"last_delivery_at"`
	LastError      string    `json:"last_error,omitempty"`
}

// state holds the mutable delivery counters. All mutation goes through its
// methods; the pipeline runs on multiple goroutines.
type state struct {
	mu   sync.Mutex
	snap Snapshot
}

func (s *state) noteDelivered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Delivered++
	s.snap.LastDeliveryAt = time.Now()
}

func (s *state) noteFailed(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Failed++
	s.snap.LastError = errMsg
}

func (s *state) noteExhausted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RetryExhausted++
}

func (s *state) setLastError(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastError = errMsg
}

// snapshot returns a copy of the current counters.
func (s *state) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
