package cdc

import (
	"sync"
	"time"

	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
)

// Journal is an append-only, bounded event log. Append assigns the next
// monotonically increasing id. From returns every event after
// lastSeenID, or a lag_exceeded error if lastSeenID has already aged out
// of the retention window.
type Journal interface {
	Append(eventType EventType, batchID string, data interface{}) Event
	From(lastSeenID int64) ([]Event, error)
	Latest() int64
}

// ringJournal is the in-memory Journal: a fixed-capacity ring buffer
// that drops the oldest event on overflow. This is the default
// backend; infrastructure/journal provides a Badger-backed durable
// alternative with the same interface.
type ringJournal struct {
	mu       sync.Mutex
	capacity int
	events   []Event // ring, logical order tracked by head/oldestID
	head     int     // index in events of the next write
	count    int     // number of live events
	nextID   int64
	oldestID int64 // id of the oldest retained event, 0 if empty
}

// NewRingJournal creates an in-memory Journal retaining at most
// capacity events.
func NewRingJournal(capacity int) Journal {
	if capacity <= 0 {
		capacity = 1
	}
	return &ringJournal{
		capacity: capacity,
		events:   make([]Event, capacity),
		nextID:   1,
	}
}

func (j *ringJournal) Append(eventType EventType, batchID string, data interface{}) Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	ev := Event{
		ID:        j.nextID,
		Type:      eventType,
		Timestamp: time.Now(),
		BatchID:   batchID,
		Data:      data,
	}
	j.nextID++

	j.events[j.head] = ev
	j.head = (j.head + 1) % j.capacity
	if j.count < j.capacity {
		j.count++
	}
	if j.count == j.capacity {
		j.oldestID = j.events[j.head].ID
	} else if j.oldestID == 0 {
		j.oldestID = ev.ID
	}

	return ev
}

// From returns every event with id > lastSeenID, oldest first. Passing
// lastSeenID == 0 returns the full retained window, unless the window
// has already evicted events before the current oldest (the ring has
// wrapped), in which case even a fresh subscriber at lastSeenID == 0
// has missed events and this is a lag_exceeded error: the caller missed
// events that have already been evicted and must resynchronize from a
// fresh snapshot.
func (j *ringJournal) From(lastSeenID int64) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.count == 0 {
		return nil, nil
	}
	if lastSeenID < j.oldestID-1 {
		return nil, apperrors.New(apperrors.KindLagExceeded, "requested id precedes the retained journal window")
	}

	out := make([]Event, 0, j.count)
	start := (j.head - j.count + j.capacity) % j.capacity
	for i := 0; i < j.count; i++ {
		ev := j.events[(start+i)%j.capacity]
		if ev.ID > lastSeenID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (j *ringJournal) Latest() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextID - 1
}
