package market

import "sync"

// EventPublisher is an interface for publishing book events (opens,
// matches, cancels).
//
// IMPORTANT: Implementations must either:
//  1. Process events synchronously before returning, OR
//  2. Clone the BookEvent data before returning
//
// The caller recycles BookEvent objects to a sync.Pool after Publish
// returns, so any asynchronous processing must work with cloned data.
type EventPublisher interface {
	Publish(...*BookEvent)
}

// MemoryPublisher stores events in memory, useful for testing and for
// feeding an AggregatedBook in-process.
type MemoryPublisher struct {
	mu     sync.RWMutex
	Events []*BookEvent
}

// NewMemoryPublisher creates a new MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		Events: make([]*BookEvent, 0),
	}
}

// Publish appends cloned events to the in-memory slice.
func (m *MemoryPublisher) Publish(events ...*BookEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		cpy := new(BookEvent)
		*cpy = *ev
		m.Events = append(m.Events, cpy)
	}
}

// Count returns the number of events stored.
func (m *MemoryPublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Events)
}

// Get returns the event at the specified index.
func (m *MemoryPublisher) Get(index int) *BookEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Events[index]
}

// DiscardPublisher drops every event. Use it when no downstream
// consumer exists.
type DiscardPublisher struct {
}

// NewDiscardPublisher creates a new DiscardPublisher.
func NewDiscardPublisher() *DiscardPublisher {
	return &DiscardPublisher{}
}

// Publish drops the events.
func (p *DiscardPublisher) Publish(events ...*BookEvent) {
}
