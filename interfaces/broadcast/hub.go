// Package broadcast implements the Broadcast Hub (C5): the registry of
// live CDC subscribers, their per-subscriber bounded queues, and the
// backpressure/draining state machine that keeps one slow subscriber
// from ever blocking publish or another subscriber's delivery.
package broadcast

import (
	"sync"
	"time"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"go.uber.org/zap"
)

// State is a subscriber's position in its lifecycle.
type State string

const (
	StateConnecting State = "connecting"
	StateLive       State = "live"
	StateDraining   State = "draining"
	StateClosed     State = "closed"
)

// Delivery is what a subscriber's queue carries: either a CDC event or a
// control signal (currently only "lag_exceeded"; the session endpoint
// layers its own heartbeat control frames on top of this channel).
type Delivery struct {
	Event   *cdc.Event
	Control string
}

// Filter admits events by type; a nil or empty Types set admits
// everything.
type Filter struct {
	Types map[cdc.EventType]bool
}

func (f Filter) admits(t cdc.EventType) bool {
	if len(f.Types) == 0 {
		return true
	}
	return f.Types[t]
}

// NewFilter builds a Filter from a type list; an empty list admits all
// event types.
func NewFilter(types []cdc.EventType) Filter {
	if len(types) == 0 {
		return Filter{}
	}
	m := make(map[cdc.EventType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return Filter{Types: m}
}

// Hub is the C5 broadcast registry. It implements cdc.Broadcaster:
// Publish is called by domain/cdc.Bus once per appended event and must
// never block the caller for long.
type Hub struct {
	mu            sync.RWMutex
	subscribers   map[string]*Subscriber
	queueCapacity int
	drainDeadline time.Duration
	logger        *zap.Logger

	fanoutDropped int64
}

// NewHub creates a Hub whose subscriber queues hold queueCapacity events
// before triggering backpressure.
func NewHub(queueCapacity int, logger *zap.Logger) *Hub {
	if queueCapacity <= 0 {
		queueCapacity = 1024
	}
	return &Hub{
		subscribers:   make(map[string]*Subscriber),
		queueCapacity: queueCapacity,
		drainDeadline: 5 * time.Second,
		logger:        logger,
	}
}

// Subscribe registers a new subscriber and begins its catch-up phase
// asynchronously: the returned Subscriber is immediately usable (its
// Events channel can be read right away) but starts in StateConnecting,
// transitioning to StateLive once the journal replay completes.
//
// If lastSeenID has already aged out of the journal's retention window,
// the hub emits a single lag_exceeded control delivery instead of
// replaying, then transitions directly to StateLive.
func (h *Hub) Subscribe(id string, filter Filter, lastSeenID int64, journal cdc.Journal) *Subscriber {
	sub := &Subscriber{
		id:            id,
		filter:        filter,
		queue:         make(chan Delivery, h.queueCapacity),
		lastDelivered: lastSeenID,
		state:         StateConnecting,
		done:          make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[id] = sub
	h.mu.Unlock()

	go h.catchUp(sub, journal)

	return sub
}

// deliverCaughtUp applies the same filter-admit/enqueue/ack sequence
// Publish uses, for an event taken from the journal replay or the
// catch-up backlog.
func (h *Hub) deliverCaughtUp(sub *Subscriber, ev cdc.Event) {
	if !sub.filter.admits(ev.Type) {
		return
	}
	e := ev
	sub.enqueueBlocking(Delivery{Event: &e})
	sub.setLastDelivered(ev.ID)
}

func (h *Hub) catchUp(sub *Subscriber, journal cdc.Journal) {
	events, err := journal.From(sub.lastDelivered)
	if err != nil {
		sub.enqueueBlocking(Delivery{Control: "lag_exceeded"})
		sub.finishCatchUp(func(ev cdc.Event) { h.deliverCaughtUp(sub, ev) })
		return
	}
	for _, ev := range events {
		h.deliverCaughtUp(sub, ev)
	}
	sub.finishCatchUp(func(ev cdc.Event) { h.deliverCaughtUp(sub, ev) })
}

// Publish implements cdc.Broadcaster. For every live subscriber whose
// filter admits the event, it attempts a non-blocking enqueue; a full
// queue moves that subscriber to draining without affecting any other
// subscriber or the caller.
func (h *Hub) Publish(ev cdc.Event) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if sub.bufferIfConnecting(ev) {
			continue
		}
		if sub.State() != StateLive || !sub.filter.admits(ev.Type) {
			continue
		}
		e := ev
		if !sub.enqueueNonBlocking(Delivery{Event: &e}) {
			h.beginDrain(sub)
			continue
		}
		sub.setLastDelivered(ev.ID)
	}
}

// beginDrain transitions a subscriber whose queue overflowed into
// StateDraining and schedules its disconnect: remaining queued events
// are still delivered, but no further publish enqueues it.
func (h *Hub) beginDrain(sub *Subscriber) {
	if !sub.transitionToDraining() {
		return // already draining or closed
	}
	h.mu.Lock()
	h.fanoutDropped++
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Warn("subscriber queue saturated, draining", zap.String("subscriberId", sub.id))
	}

	go func() {
		<-time.After(h.drainDeadline)
		h.Unsubscribe(sub.id)
	}()
}

// Unsubscribe removes a subscriber and releases its queue. No further
// events are buffered for it.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if ok {
		sub.close()
	}
}

// UpdateFilter atomically replaces a live subscriber's event-type
// filter.
func (h *Hub) UpdateFilter(id string, filter Filter) bool {
	h.mu.RLock()
	sub, ok := h.subscribers[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	sub.setFilter(filter)
	return true
}

// SubscriberCount reports the number of currently registered
// subscribers, for health/readiness reporting.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// FanoutDropped reports how many subscribers have been disconnected for
// backpressure since the hub started.
func (h *Hub) FanoutDropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fanoutDropped
}

// Shutdown drains every subscriber and closes the hub; called once at
// process shutdown per the engine's explicit Start/Shutdown lifecycle.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		subs = append(subs, s)
	}
	h.subscribers = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
