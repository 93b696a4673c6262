package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hostwatch/hostwatch/pkg/types"
)

// ErrClosed is returned by Recv once the subscription (or its hub) is closed
// and no sample is pending.
var ErrClosed = errors.New("hub: subscription closed")

// Hub fans samples out to all live subscriptions.
type Hub struct {
	// pubMu serializes Publish so each mailbox only ever moves forward.
	pubMu sync.Mutex

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// Stats holds the hub's delivery counters.
type Stats struct {
	Subscribers int
	Published   uint64

	// Dropped counts samples overwritten in a mailbox before being consumed.
	Dropped uint64
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscription. It never fails; after Close the
// returned subscription is already closed.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{
		hub:   h,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.shutdown()
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Publish delivers sample to every current subscription without blocking.
// With no subscribers the sample is discarded.
func (h *Hub) Publish(sample types.Sample) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		// Each subscriber gets its own copy so no two readers share a slice.
		if s.put(sample.Clone()) {
			h.dropped.Add(1)
		}
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stats returns a snapshot of the hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Subscribers: h.Count(),
		Published:   h.published.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// Close closes every subscription. Later Subscribe calls return closed
// subscriptions and Publish becomes a no-op for delivery.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		s.shutdown()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Subscription is one consumer's handle on the hub.
type Subscription struct {
	hub *Hub

	mu      sync.Mutex
	pending types.Sample
	has     bool

	ready chan struct{} // capacity 1; signalled when a sample lands
	done  chan struct{}
	once  sync.Once
}

// put stores sample in the mailbox, replacing any unconsumed one.
// It reports whether a pending sample was overwritten.
func (s *Subscription) put(sample types.Sample) bool {
	s.mu.Lock()
	overwrote := s.has
	s.pending = sample
	s.has = true
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return overwrote
}

// TryRecv takes the pending sample, if any, without blocking.
func (s *Subscription) TryRecv() (types.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return types.Sample{}, false
	}
	v := s.pending
	s.pending = types.Sample{}
	s.has = false
	return v, true
}

// Ready is signalled whenever a new sample may be waiting. Callers follow it
// with TryRecv; a signal with an empty mailbox is possible and harmless.
func (s *Subscription) Ready() <-chan struct{} { return s.ready }

// Done is closed when the subscription or its hub is closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Recv blocks until a sample is available, the subscription is closed
// (ErrClosed) or ctx is done.
func (s *Subscription) Recv(ctx context.Context) (types.Sample, error) {
	for {
		if v, ok := s.TryRecv(); ok {
			return v, nil
		}
		select {
		case <-s.ready:
		case <-s.done:
			if v, ok := s.TryRecv(); ok {
				return v, nil
			}
			return types.Sample{}, ErrClosed
		case <-ctx.Done():
			return types.Sample{}, ctx.Err()
		}
	}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
	s.shutdown()
}

func (s *Subscription) shutdown() {
	s.once.Do(func() { close(s.done) })
}
