package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	started   []string
	progress  []cdc.ProgressPayload
	completed []cdc.CompletedPayload
	failed    []cdc.FailedPayload
}

func (r *recordingEmitter) AnalysisStarted(batchID string) cdc.Event {
	r.started = append(r.started, batchID)
	return cdc.Event{}
}

func (r *recordingEmitter) AnalysisProgress(batchID string, nodesProcessed, edgesProcessed int) cdc.Event {
	r.progress = append(r.progress, cdc.ProgressPayload{NodesProcessed: nodesProcessed, EdgesProcessed: edgesProcessed})
	return cdc.Event{}
}

func (r *recordingEmitter) AnalysisCompleted(batchID string, payload cdc.CompletedPayload) cdc.Event {
	r.completed = append(r.completed, payload)
	return cdc.Event{}
}

func (r *recordingEmitter) AnalysisFailed(batchID string, payload cdc.FailedPayload) cdc.Event {
	r.failed = append(r.failed, payload)
	return cdc.Event{}
}

func ndjson(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestApplyBatch_NodesThenEdgesInsertedInOrder(t *testing.T) {
	store := graph.New(nil)
	emitter := &recordingEmitter{}
	c := NewCoordinator(store, emitter, 0, 0, nil)

	stream := ndjson(
		`{"batchId":"b1","kind":"node","payload":{"id":"function:a.go:f:1","name":"f","kind":"function","language":"go","file":"a.go","line":1}}`,
		`{"batchId":"b1","kind":"node","payload":{"id":"function:a.go:g:2","name":"g","kind":"function","language":"go","file":"a.go","line":2}}`,
		`{"batchId":"b1","kind":"edge","payload":{"sourceId":"function:a.go:f:1","targetId":"function:a.go:g:2","type":"calls"}}`,
		`{"batchId":"b1","kind":"end","payload":{}}`,
	)

	payload, err := c.ApplyBatch(context.Background(), stream)
	require.NoError(t, err)
	assert.Equal(t, 2, payload.NodesProcessed)
	assert.Equal(t, 1, payload.EdgesProcessed)

	_, ok := store.GetNode("function:a.go:f:1")
	assert.True(t, ok)
	rels := store.OutgoingEdges("function:a.go:f:1")
	require.Len(t, rels, 1)
	assert.Equal(t, graph.RelationCalls, rels[0].Type)

	assert.Equal(t, []string{"b1"}, emitter.started)
	require.Len(t, emitter.completed, 1)
	assert.Empty(t, emitter.failed)
}

func TestApplyBatch_EdgeUpsertBeforeEndpointExistsRollsBackWholeBatch(t *testing.T) {
	store := graph.New(nil)
	emitter := &recordingEmitter{}
	c := NewCoordinator(store, emitter, 0, 0, nil)

	stream := ndjson(
		`{"batchId":"b1","kind":"edge","payload":{"sourceId":"missing-a","targetId":"missing-b","type":"calls"}}`,
		`{"batchId":"b1","kind":"end","payload":{}}`,
	)

	_, err := c.ApplyBatch(context.Background(), stream)
	require.Error(t, err)
	require.Len(t, emitter.failed, 1)
	assert.True(t, emitter.failed[0].RolledBack)

	stats := store.Stats()
	assert.Equal(t, 0, stats.TotalNodes)
	assert.Equal(t, 0, stats.TotalRelationships)
}

func TestApplyBatch_ParserErrorMessageRollsBack(t *testing.T) {
	store := graph.New(nil)
	emitter := &recordingEmitter{}
	c := NewCoordinator(store, emitter, 0, 0, nil)

	stream := ndjson(
		`{"batchId":"b1","kind":"node","payload":{"id":"function:a.go:f:1","name":"f","kind":"function","language":"go","file":"a.go","line":1}}`,
		`{"batchId":"b1","kind":"error","payload":{"reason":"syntax error in a.go"}}`,
	)

	_, err := c.ApplyBatch(context.Background(), stream)
	require.Error(t, err)
	require.Len(t, emitter.failed, 1)
	assert.Equal(t, "syntax error in a.go", emitter.failed[0].Reason)

	// The node message was buffered but never committed: no mutation
	// ever reached the store.
	stats := store.Stats()
	assert.Equal(t, 0, stats.TotalNodes)
}

func TestApplyBatch_StreamWithoutEndMessageFails(t *testing.T) {
	store := graph.New(nil)
	emitter := &recordingEmitter{}
	c := NewCoordinator(store, emitter, 0, 0, nil)

	stream := ndjson(
		`{"batchId":"b1","kind":"node","payload":{"id":"function:a.go:f:1","name":"f","kind":"function","language":"go","file":"a.go","line":1}}`,
	)

	_, err := c.ApplyBatch(context.Background(), stream)
	require.Error(t, err)
	require.Len(t, emitter.failed, 1)
}

func TestApplyBatch_NodeDeleteRemovesNodeAndIncidentEdges(t *testing.T) {
	store := graph.New(nil)
	emitter := &recordingEmitter{}
	c := NewCoordinator(store, emitter, 0, 0, nil)

	seed := ndjson(
		`{"batchId":"b1","kind":"node","payload":{"id":"function:a.go:f:1","name":"f","kind":"function","language":"go","file":"a.go","line":1}}`,
		`{"batchId":"b1","kind":"node","payload":{"id":"function:a.go:g:2","name":"g","kind":"function","language":"go","file":"a.go","line":2}}`,
		`{"batchId":"b1","kind":"edge","payload":{"sourceId":"function:a.go:f:1","targetId":"function:a.go:g:2","type":"calls"}}`,
		`{"batchId":"b1","kind":"end","payload":{}}`,
	)
	_, err := c.ApplyBatch(context.Background(), seed)
	require.NoError(t, err)

	deleteStream := ndjson(
		`{"batchId":"b2","kind":"delete","payload":{"type":"node","id":"function:a.go:f:1"}}`,
		`{"batchId":"b2","kind":"end","payload":{}}`,
	)
	payload, err := c.ApplyBatch(context.Background(), deleteStream)
	require.NoError(t, err)
	assert.Equal(t, 1, payload.NodesProcessed)

	_, ok := store.GetNode("function:a.go:f:1")
	assert.False(t, ok)
	assert.Empty(t, store.IncomingEdges("function:a.go:g:2"))
}

func TestApplyBatch_ProgressEventsForwarded(t *testing.T) {
	store := graph.New(nil)
	emitter := &recordingEmitter{}
	c := NewCoordinator(store, emitter, 0, 0, nil)

	stream := ndjson(
		`{"batchId":"b1","kind":"progress","payload":{"nodesProcessed":5,"edgesProcessed":2}}`,
		`{"batchId":"b1","kind":"end","payload":{}}`,
	)
	_, err := c.ApplyBatch(context.Background(), stream)
	require.NoError(t, err)
	require.Len(t, emitter.progress, 1)
	assert.Equal(t, 5, emitter.progress[0].NodesProcessed)
}
