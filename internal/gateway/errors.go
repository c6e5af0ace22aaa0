package gateway

import (
	"fmt"
	"time"
)

// StatusError is returned when the gateway responds with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, e.Status)
}

// TimeoutError is returned when a gateway call exceeds the per-call timeout.
// It is kept distinct from StatusError so diagnostics can tell a slow agent
// run from a protocol failure.
type TimeoutError struct {
	SessionKey string
	Timeout    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gateway: call for session %s timed out after %s", e.SessionKey, e.Timeout)
}
