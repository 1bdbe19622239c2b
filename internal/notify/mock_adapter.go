package notify

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter implements Adapter for testing. It records sent events and can
// simulate send failures.
type MockAdapter struct {
	mu      sync.Mutex
	sent    []Event
	failErr error
}

// NewMockAdapter creates a MockAdapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

// Name implements Adapter.
func (m *MockAdapter) Name() string { return "mock" }

// Send records the event, or returns the configured failure.
func (m *MockAdapter) Send(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return fmt.Errorf("mock adapter: %w", m.failErr)
	}
	m.sent = append(m.sent, ev)
	return nil
}

// Sent returns a copy of all recorded events.
func (m *MockAdapter) Sent() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.sent))
	copy(out, m.sent)
	return out
}

// FailWith makes subsequent Send calls return err.
func (m *MockAdapter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}
