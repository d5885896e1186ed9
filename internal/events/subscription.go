package events

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// Subscription is one listener's registration with the fabric
type Subscription struct {
	id       uint64
	fabric   *Fabric
	listener Listener
	exec     Executor
	kinds    map[domain.EventKind]bool
	box      *mailbox
	done     chan struct{}
	logger   *zap.Logger
}

// Unsubscribe stops new events from being enqueued for this listener.
// Events already enqueued are still delivered; the returned channel is closed
// after the last delivery returns. Waiting on it from inside the listener's
// own callback deadlocks.
func (s *Subscription) Unsubscribe() <-chan struct{} {
	if s.fabric.remove(s.id) {
		s.box.close()
	}
	return s.done
}

// Done is closed once the subscription has delivered its final event.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) accepts(event domain.Event) bool {
	return s.kinds == nil || s.kinds[event.Kind()]
}

func (s *Subscription) run() {
	defer close(s.done)
	for {
		event, ok := s.box.pop()
		if !ok {
			return
		}
		s.deliver(event)
	}
}

func (s *Subscription) deliver(event domain.Event) {
	if s.exec == nil {
		s.call(event)
		return
	}

	// Wait for the executor to run the delivery so ordering holds even when
	// the consumer's loop is asynchronous.
	delivered := make(chan struct{})
	s.exec(func() {
		defer close(delivered)
		s.call(event)
	})
	<-delivered
}

func (s *Subscription) call(event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Listener panicked",
				zap.String("event", string(event.Kind())),
				zap.String("batch_id", event.Batch()),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	s.listener.OnEvent(event)
}
