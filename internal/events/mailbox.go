package events

import (
	"sync"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// mailbox is an unbounded FIFO queue with a single consumer
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []domain.Event
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(event domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.queue = append(m.queue, event)
	m.cond.Signal()
}

// pop blocks until an event is available. It returns false once the mailbox
// is closed and drained.
func (m *mailbox) pop() (domain.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return nil, false
	}
	event := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return event, true
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}
