package broadcast

import (
	"sync"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
)

// Subscriber is one registered consumer of the broadcast feed. Only the
// hub's fan-out path enqueues into it; only the session endpoint (C6)
// dequeues, per the ownership rule in §5.
type Subscriber struct {
	id string

	mu            sync.Mutex
	filter        Filter
	state         State
	lastDelivered int64
	pending       []cdc.Event

	queue     chan Delivery
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the subscriber's session id.
func (s *Subscriber) ID() string { return s.id }

// Events returns the channel the session endpoint reads deliveries
// from. It is closed when the subscriber is unsubscribed.
func (s *Subscriber) Events() <-chan Delivery { return s.queue }

// Done is closed when the subscriber has been unsubscribed, signalling
// the session endpoint to tear down the connection.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// State returns the subscriber's current lifecycle state.
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastDelivered returns the id of the most recent event delivered to
// this subscriber, for ack/reconnect bookkeeping.
func (s *Subscriber) LastDelivered() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDelivered
}

func (s *Subscriber) setState(st State) {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = st
	}
	s.mu.Unlock()
}

// bufferIfConnecting appends ev to the catch-up backlog if the
// subscriber is still connecting, returning true if it was buffered.
// A false return means the subscriber has already gone live (or past
// it), so the caller must deliver ev through the normal live path
// instead. This closes the window between catchUp's journal.From
// snapshot and its transition to live: any event published in between
// is buffered here rather than silently missed.
func (s *Subscriber) bufferIfConnecting(ev cdc.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return false
	}
	s.pending = append(s.pending, ev)
	return true
}

// finishCatchUp atomically hands off the pending backlog and flips the
// subscriber to live under one lock, then calls deliver for each
// backlogged event in order. Because the handoff and the state
// transition happen together, no event published during catch-up can
// land in neither the replay nor the live stream.
func (s *Subscriber) finishCatchUp(deliver func(cdc.Event)) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	if s.state != StateClosed {
		s.state = StateLive
	}
	s.mu.Unlock()

	for _, ev := range pending {
		deliver(ev)
	}
}

func (s *Subscriber) setLastDelivered(id int64) {
	s.mu.Lock()
	s.lastDelivered = id
	s.mu.Unlock()
}

func (s *Subscriber) setFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// transitionToDraining moves connecting/live subscribers into draining.
// Returns false if the subscriber was already draining or closed.
func (s *Subscriber) transitionToDraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDraining || s.state == StateClosed {
		return false
	}
	s.state = StateDraining
	return true
}

// enqueueNonBlocking attempts delivery without blocking the publisher;
// returns false if the queue was full.
func (s *Subscriber) enqueueNonBlocking(d Delivery) bool {
	select {
	case s.queue <- d:
		return true
	default:
		return false
	}
}

// enqueueBlocking is used only during the catch-up replay, which runs on
// its own goroutine and may legitimately wait for the session endpoint
// to drain the queue.
func (s *Subscriber) enqueueBlocking(d Delivery) {
	select {
	case s.queue <- d:
	case <-s.done:
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		close(s.done)
		close(s.queue)
	})
}
