// Package alert posts operator alerts and scheduled delivery digests to
// chat channels.
package alert

import (
	"context"
	"errors"
	"fmt"
)

// Notifier posts a text alert to one destination.
type Notifier interface {
	Name() string
	Post(ctx context.Context, text string) error
}

// Multi fans an alert out to every configured notifier. A failing
// destination never blocks the others.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a Multi over the given notifiers. Nil entries are skipped.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len returns the number of configured notifiers.
func (m *Multi) Len() int {
	return len(m.notifiers)
}

// Post delivers the alert to all notifiers and aggregates their errors.
func (m *Multi) Post(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Post(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("alert: %s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
