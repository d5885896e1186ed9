package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// Listener receives events from the fabric
type Listener interface {
	OnEvent(event domain.Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(event domain.Event)

// OnEvent calls f(event)
func (f ListenerFunc) OnEvent(event domain.Event) { f(event) }

// Executor runs a delivery on the consumer's execution context.
// Implementations must run submitted functions in submission order.
type Executor func(deliver func())

// Option configures a subscription
type Option func(*Subscription)

// WithExecutor marshals deliveries through exec instead of calling the
// listener on the mailbox goroutine.
func WithExecutor(exec Executor) Option {
	return func(s *Subscription) {
		s.exec = exec
	}
}

// WithFilter only enqueues events whose kind is listed.
func WithFilter(kinds ...domain.EventKind) Option {
	return func(s *Subscription) {
		s.kinds = make(map[domain.EventKind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
}

// Fabric is a thread-safe fan-out of events to a dynamic set of listeners
type Fabric struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	logger *zap.Logger
}

// NewFabric creates a new notification fabric
func NewFabric(logger *zap.Logger) *Fabric {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fabric{
		subs:   make(map[uint64]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a listener. It receives every event published after
// Subscribe returns, exactly once and in publish order.
func (f *Fabric) Subscribe(listener Listener, opts ...Option) *Subscription {
	sub := &Subscription{
		fabric:   f,
		listener: listener,
		box:      newMailbox(),
		done:     make(chan struct{}),
		logger:   f.logger,
	}
	for _, opt := range opts {
		opt(sub)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		sub.box.close()
		close(sub.done)
		return sub
	}
	f.nextID++
	sub.id = f.nextID
	f.subs[sub.id] = sub
	f.mu.Unlock()

	go sub.run()
	return sub
}

// Unsubscribe removes a subscription. See Subscription.Unsubscribe.
func (f *Fabric) Unsubscribe(sub *Subscription) <-chan struct{} {
	return sub.Unsubscribe()
}

// Publish enqueues event for every current subscriber without blocking.
func (f *Fabric) Publish(event domain.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	// Enqueue under the read lock so an Unsubscribe that returns has either
	// seen this event enqueued or excluded it.
	for _, sub := range f.subs {
		if sub.accepts(event) {
			sub.box.push(event)
		}
	}
}

// Len returns the number of active subscriptions
func (f *Fabric) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close unsubscribes everyone and waits for pending deliveries to drain.
func (f *Fabric) Close() {
	f.mu.Lock()
	f.closed = true
	subs := make([]*Subscription, 0, len(f.subs))
	for id, sub := range f.subs {
		subs = append(subs, sub)
		delete(f.subs, id)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.box.close()
		<-sub.done
	}
}

func (f *Fabric) remove(id uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[id]; !ok {
		return false
	}
	delete(f.subs, id)
	return true
}
