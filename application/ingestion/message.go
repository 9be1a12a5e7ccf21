// Package ingestion implements the Ingestion Coordinator (C7): it
// consumes a batch stream from the external parser collaborator,
// applies it to the graph store in the fixed insert/delete order, and
// drives the CDC lifecycle events around the batch.
package ingestion

import (
	"encoding/json"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
)

// MessageKind is the `kind` discriminator of one parser wire message.
type MessageKind string

const (
	KindNode     MessageKind = "node"
	KindEdge     MessageKind = "edge"
	KindDelete   MessageKind = "delete"
	KindProgress MessageKind = "progress"
	KindEnd      MessageKind = "end"
	KindError    MessageKind = "error"
)

// Message is one line of the parser's NDJSON batch stream.
type Message struct {
	BatchID string          `json:"batchId"`
	Kind    MessageKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NodePayload carries the fields of a node message.
type NodePayload struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Kind       string                 `json:"kind"`
	Language   string                 `json:"language"`
	File       string                 `json:"file"`
	Line       int                    `json:"line"`
	EndLine    int                    `json:"endLine"`
	Complexity int                    `json:"complexity"`
	Metadata   map[string]interface{} `json:"metadata"`
}

func (p NodePayload) toNode() graph.Node {
	return graph.Node{
		ID:         p.ID,
		Name:       p.Name,
		Kind:       graph.Kind(p.Kind),
		Language:   p.Language,
		File:       p.File,
		Line:       p.Line,
		EndLine:    p.EndLine,
		Complexity: p.Complexity,
		Metadata:   graph.Metadata(p.Metadata),
	}
}

// EdgePayload carries the fields of an edge message.
type EdgePayload struct {
	SourceID string                 `json:"sourceId"`
	TargetID string                 `json:"targetId"`
	Type     string                 `json:"type"`
	IsSeam   bool                   `json:"isSeam"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (p EdgePayload) toRelationship() graph.Relationship {
	return graph.Relationship{
		SourceID: p.SourceID,
		TargetID: p.TargetID,
		Type:     graph.RelationshipType(p.Type),
		IsSeam:   p.IsSeam,
		Metadata: graph.Metadata(p.Metadata),
	}
}

// TriplePayload identifies a relationship to delete.
type TriplePayload struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
}

// DeletePayload carries a node or relationship deletion.
type DeletePayload struct {
	Type   string         `json:"type"` // "node" | "edge"
	ID     string         `json:"id,omitempty"`
	Triple *TriplePayload `json:"triple,omitempty"`
}

// ErrorPayload carries the parser's explanation for an `error` message.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

// relationshipDelete is the resolved form of a `delete` message whose
// Type is "edge".
type relationshipDelete struct {
	sourceID string
	targetID string
	typ      graph.RelationshipType
}

// batch accumulates one ingestion batch's mutations so they can be
// applied in the fixed order the store's invariants require: node
// upserts, then relationship upserts, then relationship deletes, then
// node deletes (edges before nodes on delete, nodes before edges on
// insert).
type batch struct {
	nodeUpserts []graph.Node
	relUpserts  []graph.Relationship
	relDeletes  []relationshipDelete
	nodeDeletes []string
}
