package websocket

import (
	"encoding/json"
	"testing"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	"github.com/stretchr/testify/assert"
)

func TestEntityTypeOf(t *testing.T) {
	assert.Equal(t, "node", entityTypeOf(cdc.EventNodeAdded))
	assert.Equal(t, "node", entityTypeOf(cdc.EventNodeUpdated))
	assert.Equal(t, "node", entityTypeOf(cdc.EventNodeRemoved))
	assert.Equal(t, "relationship", entityTypeOf(cdc.EventRelationshipAdded))
	assert.Equal(t, "relationship", entityTypeOf(cdc.EventRelationshipRemoved))
	assert.Equal(t, "batch", entityTypeOf(cdc.EventAnalysisCompleted))
}

func TestEntityIDOf(t *testing.T) {
	node := graph.Node{ID: "function:a.go:f:1"}
	assert.Equal(t, node.ID, entityIDOf(&cdc.Event{Type: cdc.EventNodeAdded, Data: node}))

	rel := graph.Relationship{SourceID: "a", TargetID: "b"}
	assert.Equal(t, "a->b", entityIDOf(&cdc.Event{Type: cdc.EventRelationshipAdded, Data: rel}))

	removed := cdc.NodeRemovedPayload{NodeID: "function:a.go:f:1"}
	assert.Equal(t, removed.NodeID, entityIDOf(&cdc.Event{Type: cdc.EventNodeRemoved, Data: removed}))

	relRemoved := cdc.RelationshipRemovedPayload{SourceID: "a", TargetID: "b"}
	assert.Equal(t, "a->b", entityIDOf(&cdc.Event{Type: cdc.EventRelationshipRemoved, Data: relRemoved}))

	assert.Equal(t, "batch-1", entityIDOf(&cdc.Event{Type: cdc.EventAnalysisCompleted, BatchID: "batch-1", Data: cdc.CompletedPayload{}}))
}

func TestControlFrameUnmarshal_SubscribeFilter(t *testing.T) {
	s := &Session{id: "s1", hub: nil}
	_ = s // hub.UpdateFilter would panic on a nil hub; exercise parsing only.

	var frame ControlFrame
	raw := []byte(`{"control":"subscribe_filter","types":["node_added","node_removed"]}`)
	err := json.Unmarshal(raw, &frame)
	assert.NoError(t, err)
	assert.Equal(t, "subscribe_filter", frame.Control)
	assert.Equal(t, []string{"node_added", "node_removed"}, frame.Types)
}

func TestControlFrameMarshal_OmitsEmptyFields(t *testing.T) {
	out, err := json.Marshal(ControlFrame{Control: "heartbeat"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"control":"heartbeat"}`, string(out))
}

func TestServerFrameMarshal(t *testing.T) {
	frame := ServerFrame{
		EventID:    1,
		Timestamp:  "2026-07-31T00:00:00Z",
		Type:       string(cdc.EventNodeAdded),
		EntityType: "node",
		EntityID:   "function:a.go:f:1",
		Data:       graph.Node{ID: "function:a.go:f:1"},
	}
	out, err := json.Marshal(frame)
	assert.NoError(t, err)
	assert.Contains(t, string(out), `"eventId":1`)
	assert.Contains(t, string(out), `"entityId":"function:a.go:f:1"`)
}
