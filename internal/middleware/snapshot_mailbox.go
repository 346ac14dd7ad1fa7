package middleware

import (
	"sync"

	"BookPulse/internal/domain/models"
)

// SnapshotMailbox is a single-slot latest-value channel between the market
// feeds and the engine loop. Publishing overwrites the previous value and
// never blocks, so backpressure on the writer is structurally impossible and
// the engine always consumes fresh data.
type SnapshotMailbox struct {
	mu     sync.Mutex
	latest *models.MarketSnapshot
	notify chan struct{}
	closed bool
}

// NewSnapshotMailbox creates an empty mailbox.
func NewSnapshotMailbox() *SnapshotMailbox {
	return &SnapshotMailbox{notify: make(chan struct{}, 1)}
}

// Publish replaces the current value. A stale unconsumed snapshot is simply
// dropped.
func (m *SnapshotMailbox) Publish(s *models.MarketSnapshot) {
	if s == nil {
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.latest = s
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
		// a wakeup is already pending
	}
}

// Updates signals that a fresh snapshot is available. Receivers call Latest
// after each wakeup; coalesced publishes produce a single wakeup.
func (m *SnapshotMailbox) Updates() <-chan struct{} {
	return m.notify
}

// Latest returns the current snapshot, or nil when nothing was published yet.
func (m *SnapshotMailbox) Latest() *models.MarketSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// Close stops waking receivers. Publish becomes a no-op.
func (m *SnapshotMailbox) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	close(m.notify)
}
