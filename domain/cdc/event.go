// Package cdc implements the change-data-capture event bus (C4): a
// typed event log derived from every graph mutation plus ingestion
// lifecycle events, held in a bounded append-only journal and fanned
// out to live subscribers through an injected broadcaster.
package cdc

import "time"

// EventType enumerates every event the journal records.
type EventType string

const (
	EventNodeAdded           EventType = "node_added"
	EventNodeUpdated         EventType = "node_updated"
	EventNodeRemoved         EventType = "node_removed"
	EventRelationshipAdded   EventType = "relationship_added"
	EventRelationshipRemoved EventType = "relationship_removed"
	EventAnalysisStarted     EventType = "analysis_started"
	EventAnalysisProgress    EventType = "analysis_progress"
	EventAnalysisCompleted   EventType = "analysis_completed"
	EventAnalysisFailed      EventType = "analysis_failed"
)

// Event is a single journal entry. Data carries the full record for
// node/relationship events (the settled answer to the
// full-record-vs-diff open question, see DESIGN.md) and a
// type-specific payload for ingestion lifecycle events.
type Event struct {
	ID        int64
	Type      EventType
	Timestamp time.Time
	BatchID   string // empty outside of an ingestion batch
	Data      interface{}
}

// NodeRemovedPayload is Event.Data for EventNodeRemoved.
type NodeRemovedPayload struct {
	NodeID string
}

// RelationshipRemovedPayload is Event.Data for EventRelationshipRemoved.
type RelationshipRemovedPayload struct {
	SourceID string
	TargetID string
	Type     string
}

// ProgressPayload is Event.Data for EventAnalysisProgress.
type ProgressPayload struct {
	NodesProcessed int
	EdgesProcessed int
}

// CompletedPayload is Event.Data for EventAnalysisCompleted.
type CompletedPayload struct {
	NodesProcessed int
	EdgesProcessed int
	Duration       time.Duration
}

// FailedPayload is Event.Data for EventAnalysisFailed.
type FailedPayload struct {
	Reason     string
	RolledBack bool
}
