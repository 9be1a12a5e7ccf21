package cdc

import (
	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
)

// Broadcaster receives every appended event for fan-out to live
// subscribers (C5). Publish must not block the caller for long: the hub
// implementation owns its own per-subscriber queuing and backpressure.
type Broadcaster interface {
	Publish(Event)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(Event) {}

// Bus is the CDC orchestrator: it implements graph.Notifier so the
// store can hand it mutations directly, appends every mutation and
// ingestion lifecycle event to the Journal, and forwards each appended
// event to the Broadcaster. Bus never blocks on the broadcaster; a slow
// or dead hub only affects its own subscribers, never the write path.
type Bus struct {
	journal     Journal
	broadcaster Broadcaster
}

// NewBus wires a Journal and Broadcaster together. Pass nil broadcaster
// to run with no live fan-out (e.g. in a replay-only process).
func NewBus(journal Journal, broadcaster Broadcaster) *Bus {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &Bus{journal: journal, broadcaster: broadcaster}
}

func (b *Bus) emit(eventType EventType, batchID string, data interface{}) Event {
	ev := b.journal.Append(eventType, batchID, data)
	b.broadcaster.Publish(ev)
	return ev
}

// graph.Notifier implementation.

func (b *Bus) NodeAdded(n graph.Node)   { b.emit(EventNodeAdded, "", n) }
func (b *Bus) NodeUpdated(n graph.Node) { b.emit(EventNodeUpdated, "", n) }
func (b *Bus) NodeRemoved(id string) {
	b.emit(EventNodeRemoved, "", NodeRemovedPayload{NodeID: id})
}
func (b *Bus) RelationshipAdded(r graph.Relationship) {
	b.emit(EventRelationshipAdded, "", r)
}
func (b *Bus) RelationshipRemoved(r graph.Relationship) {
	b.emit(EventRelationshipRemoved, "", RelationshipRemovedPayload{
		SourceID: r.SourceID,
		TargetID: r.TargetID,
		Type:     string(r.Type),
	})
}

// Ingestion lifecycle events, called by the ingestion coordinator (C7).

func (b *Bus) AnalysisStarted(batchID string) Event {
	return b.emit(EventAnalysisStarted, batchID, nil)
}

func (b *Bus) AnalysisProgress(batchID string, nodesProcessed, edgesProcessed int) Event {
	return b.emit(EventAnalysisProgress, batchID, ProgressPayload{
		NodesProcessed: nodesProcessed,
		EdgesProcessed: edgesProcessed,
	})
}

func (b *Bus) AnalysisCompleted(batchID string, payload CompletedPayload) Event {
	return b.emit(EventAnalysisCompleted, batchID, payload)
}

func (b *Bus) AnalysisFailed(batchID string, payload FailedPayload) Event {
	return b.emit(EventAnalysisFailed, batchID, payload)
}

// From and Latest delegate to the underlying journal, for catch-up reads
// and subscription handshakes.

func (b *Bus) From(lastSeenID int64) ([]Event, error) { return b.journal.From(lastSeenID) }
func (b *Bus) Latest() int64                          { return b.journal.Latest() }
