package nats

import (
	"context"
	"sync"
)

// MockPublisher is an in-memory EventPublisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*LinkEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*LinkEvent, 0),
	}
}

// PublishLinkEvent records the event and returns any configured error.
func (m *MockPublisher) PublishLinkEvent(ctx context.Context, event *LinkEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns a copy of all published events.
func (m *MockPublisher) GetPublishedEvents() []*LinkEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*LinkEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventCount returns the number of published events.
func (m *MockPublisher) GetPublishedEventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.publishedEvents)
}

// GetEventsOfType returns events of one type for one link.
func (m *MockPublisher) GetEventsOfType(eventType, linkID string) []*LinkEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*LinkEvent, 0)
	for _, event := range m.publishedEvents {
		if event.Type == eventType && event.LinkID == linkID {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to fail every publish with err.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Reset clears all published events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = make([]*LinkEvent, 0)
	m.publishError = nil
	m.closed = false
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
