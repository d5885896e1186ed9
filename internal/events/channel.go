package events

import (
	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// ChannelListener delivers events into a channel drained by the consumer's
// own goroutine. The send blocks the subscription's mailbox goroutine, never
// the publisher.
type ChannelListener struct {
	C chan domain.Event
}

// NewChannelListener creates a listener backed by a channel with the given buffer
func NewChannelListener(buffer int) *ChannelListener {
	return &ChannelListener{C: make(chan domain.Event, buffer)}
}

// OnEvent sends the event on C
func (l *ChannelListener) OnEvent(event domain.Event) {
	l.C <- event
}
