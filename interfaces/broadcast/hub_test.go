package broadcast

import (
	"testing"
	"time"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForState(t *testing.T, sub *Subscriber, want State) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if sub.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("subscriber never reached state %s, got %s", want, sub.State())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestHub_SubscribeCatchUpThenLive(t *testing.T) {
	journal := cdc.NewRingJournal(100)
	journal.Append(cdc.EventNodeAdded, "", "a")
	journal.Append(cdc.EventNodeAdded, "", "b")

	h := NewHub(10, nil)
	sub := h.Subscribe("s1", Filter{}, 0, journal)
	waitForState(t, sub, StateLive)

	var got []string
	for i := 0; i < 2; i++ {
		d := <-sub.Events()
		require.NotNil(t, d.Event)
		got = append(got, d.Event.Data.(string))
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestHub_PublishDeliversToLiveSubscribers(t *testing.T) {
	journal := cdc.NewRingJournal(100)
	h := NewHub(10, nil)
	sub := h.Subscribe("s1", Filter{}, 0, journal)
	waitForState(t, sub, StateLive)

	h.Publish(cdc.Event{ID: 1, Type: cdc.EventNodeAdded, Data: "x"})

	d := <-sub.Events()
	require.NotNil(t, d.Event)
	assert.Equal(t, "x", d.Event.Data)
}

func TestHub_FilterExcludesUnwantedTypes(t *testing.T) {
	journal := cdc.NewRingJournal(100)
	h := NewHub(10, nil)
	sub := h.Subscribe("s1", NewFilter([]cdc.EventType{cdc.EventNodeAdded}), 0, journal)
	waitForState(t, sub, StateLive)

	h.Publish(cdc.Event{ID: 1, Type: cdc.EventRelationshipAdded, Data: "skip-me"})
	h.Publish(cdc.Event{ID: 2, Type: cdc.EventNodeAdded, Data: "keep-me"})

	d := <-sub.Events()
	require.NotNil(t, d.Event)
	assert.Equal(t, "keep-me", d.Event.Data)
}

func TestHub_LagExceededWhenCatchUpOutranRetention(t *testing.T) {
	journal := cdc.NewRingJournal(2)
	first := journal.Append(cdc.EventNodeAdded, "", "a")
	journal.Append(cdc.EventNodeAdded, "", "b")
	journal.Append(cdc.EventNodeAdded, "", "c")
	journal.Append(cdc.EventNodeAdded, "", "d")

	h := NewHub(10, nil)
	sub := h.Subscribe("s1", Filter{}, first.ID, journal)

	d := <-sub.Events()
	assert.Equal(t, "lag_exceeded", d.Control)
	waitForState(t, sub, StateLive)
}

func TestHub_LagExceededWhenNewSubscriberJoinsAfterWrap(t *testing.T) {
	journal := cdc.NewRingJournal(2)
	journal.Append(cdc.EventNodeAdded, "", "a")
	journal.Append(cdc.EventNodeAdded, "", "b")
	journal.Append(cdc.EventNodeAdded, "", "c")
	journal.Append(cdc.EventNodeAdded, "", "d")

	h := NewHub(10, nil)
	sub := h.Subscribe("s1", Filter{}, 0, journal)

	d := <-sub.Events()
	assert.Equal(t, "lag_exceeded", d.Control)
	waitForState(t, sub, StateLive)
}

// blockingJournal wraps a ringJournal but holds From until release is
// closed, so tests can publish an event precisely inside the window
// between the journal snapshot and the subscriber going live.
type blockingJournal struct {
	cdc.Journal
	entered chan struct{}
	release chan struct{}
}

func (j *blockingJournal) From(lastSeenID int64) ([]cdc.Event, error) {
	close(j.entered)
	<-j.release
	return j.Journal.From(lastSeenID)
}

func TestHub_PublishDuringCatchUpIsNotLost(t *testing.T) {
	journal := &blockingJournal{
		Journal: cdc.NewRingJournal(100),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	journal.Journal.Append(cdc.EventNodeAdded, "", "a")

	h := NewHub(10, nil)
	sub := h.Subscribe("s1", Filter{}, 0, journal)

	<-journal.entered // catchUp is now blocked inside journal.From
	h.Publish(cdc.Event{ID: 2, Type: cdc.EventNodeAdded, Data: "b"})
	close(journal.release) // let catchUp's From return and finish

	waitForState(t, sub, StateLive)

	var got []string
	for i := 0; i < 2; i++ {
		d := <-sub.Events()
		require.NotNil(t, d.Event)
		got = append(got, d.Event.Data.(string))
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestHub_BackpressureDisconnectsSlowSubscriber(t *testing.T) {
	journal := cdc.NewRingJournal(100)
	h := NewHub(1, nil)
	h.drainDeadline = 10 * time.Millisecond
	sub := h.Subscribe("s1", Filter{}, 0, journal)
	waitForState(t, sub, StateLive)

	// Fill the single-slot queue, then force an overflow.
	h.Publish(cdc.Event{ID: 1, Type: cdc.EventNodeAdded})
	h.Publish(cdc.Event{ID: 2, Type: cdc.EventNodeAdded}) // overflow -> draining

	waitForState(t, sub, StateDraining)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscriber was never disconnected after backpressure")
	}
}

func TestHub_UnsubscribeClosesChannelAndDone(t *testing.T) {
	journal := cdc.NewRingJournal(100)
	h := NewHub(10, nil)
	sub := h.Subscribe("s1", Filter{}, 0, journal)
	waitForState(t, sub, StateLive)

	h.Unsubscribe("s1")

	<-sub.Done()
	assert.Equal(t, 0, h.SubscriberCount())
}

func TestHub_UpdateFilter(t *testing.T) {
	journal := cdc.NewRingJournal(100)
	h := NewHub(10, nil)
	sub := h.Subscribe("s1", NewFilter([]cdc.EventType{cdc.EventNodeAdded}), 0, journal)
	waitForState(t, sub, StateLive)

	ok := h.UpdateFilter("s1", Filter{})
	require.True(t, ok)

	h.Publish(cdc.Event{ID: 1, Type: cdc.EventRelationshipAdded, Data: "now-visible"})
	d := <-sub.Events()
	require.NotNil(t, d.Event)
	assert.Equal(t, "now-visible", d.Event.Data)
}
