package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ajacobm/code-graph-mcp-sub002/application/query"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGraphHandler_Traverse_MissingStartIDIsInvalid(t *testing.T) {
	h := &GraphHandler{facade: &query.Facade{}, logger: zap.NewNop()}
	req := httptest.NewRequest(http.MethodPost, "/api/graph/traverse", bytes.NewBufferString(`{"maxDepth": 2}`))
	rec := httptest.NewRecorder()

	h.Traverse(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphHandler_Traverse_UnknownKindIsInvalid(t *testing.T) {
	h := &GraphHandler{facade: &query.Facade{}, logger: zap.NewNop()}
	req := httptest.NewRequest(http.MethodPost, "/api/graph/traverse",
		bytes.NewBufferString(`{"startId": "n1", "kind": "astar"}`))
	rec := httptest.NewRecorder()

	h.Traverse(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphHandler_Subgraph_RequiresASeed(t *testing.T) {
	h := &GraphHandler{facade: &query.Facade{}, logger: zap.NewNop()}
	req := httptest.NewRequest(http.MethodPost, "/api/graph/subgraph", bytes.NewBufferString(`{"depth": 2}`))
	rec := httptest.NewRecorder()

	h.Subgraph(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphHandler_Subgraph_NegativeDepthIsInvalid(t *testing.T) {
	h := &GraphHandler{facade: &query.Facade{}, logger: zap.NewNop()}
	req := httptest.NewRequest(http.MethodPost, "/api/graph/subgraph",
		bytes.NewBufferString(`{"nodeId": "n1", "depth": -1}`))
	rec := httptest.NewRecorder()

	h.Subgraph(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
