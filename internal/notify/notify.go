// Package notify delivers operator notifications for terminal failures and
// escalations to chat platforms (Slack, Discord). Delivery is best-effort:
// a dead webhook must never fail a dispatch.
package notify

import (
	"context"
	"log"
)

// Severity levels for events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is a Foreman event formatted for display in chat.
type Event struct {
	Title    string  // headline, e.g. "Request 42 failed in test phase"
	Body     string  // detail text
	Severity string  // info, warning, error
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed with an event.
type Field struct {
	Name  string
	Value string
}

// Adapter is the interface platform-specific implementations satisfy.
type Adapter interface {
	// Name identifies the platform for logging.
	Name() string

	// Send delivers one event to the platform.
	Send(ctx context.Context, ev Event) error
}

// Notifier fans an event out to all configured adapters. Send errors are
// logged and swallowed.
type Notifier struct {
	adapters []Adapter
}

// New creates a Notifier over the given adapters. Nil adapters are skipped so
// callers can pass conditionally-constructed ones directly.
func New(adapters ...Adapter) *Notifier {
	n := &Notifier{}
	for _, a := range adapters {
		if a != nil {
			n.adapters = append(n.adapters, a)
		}
	}
	return n
}

// Send delivers ev to every adapter, best-effort.
func (n *Notifier) Send(ctx context.Context, ev Event) {
	if n == nil {
		return
	}
	for _, a := range n.adapters {
		if err := a.Send(ctx, ev); err != nil {
			log.Printf("notify: %s send error: %v", a.Name(), err)
		}
	}
}
