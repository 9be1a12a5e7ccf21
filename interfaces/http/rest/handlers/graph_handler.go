// Package handlers implements the HTTP surface of the query facade
// (C8): one handler method per row of the spec's HTTP surface table,
// each translating request parameters into a facade call and the
// facade's result into the response envelope in §6 ("All responses are
// JSON with explicit executionTimeMs for query endpoints. Error
// responses: {error: {kind, message, details?}}").
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ajacobm/code-graph-mcp-sub002/application/query"
	"github.com/ajacobm/code-graph-mcp-sub002/interfaces/http/rest/validation"
	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GraphHandler serves every /api/graph/* route against a Facade.
type GraphHandler struct {
	facade *query.Facade
	logger *zap.Logger
}

// NewGraphHandler builds a GraphHandler.
func NewGraphHandler(facade *query.Facade, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{facade: facade, logger: logger}
}

type errorBody struct {
	Kind    apperrors.Kind         `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (h *GraphHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *GraphHandler) writeError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	body := errorBody{Kind: kind, Message: err.Error()}
	if ae, ok := err.(*apperrors.AppError); ok {
		body.Message = ae.Message
		body.Details = ae.Details
	}
	h.writeJSON(w, apperrors.HTTPStatus(kind), map[string]interface{}{"error": body})
}

func (h *GraphHandler) writeResult(w http.ResponseWriter, start time.Time, body map[string]interface{}) {
	body["executionTimeMs"] = time.Since(start).Milliseconds()
	h.writeJSON(w, http.StatusOK, body)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// Stats handles GET /api/graph/stats.
func (h *GraphHandler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stats := h.facade.Stats(r.Context())
	h.writeResult(w, start, map[string]interface{}{"stats": stats})
}

// GetNode handles GET /api/graph/nodes/{id}.
func (h *GraphHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	node, err := h.facade.GetNode(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, start, map[string]interface{}{"node": node})
}

// Search handles GET /api/graph/nodes/search.
// @Summary Search nodes
// @Description Ranked search over node names (bodies are not searched), filterable by language and kind
// @Tags graph
// @Produce json
// @Param q query string false "search text"
// @Param language query string false "language filter"
// @Param kind query string false "entity kind filter"
// @Param offset query int false "pagination offset"
// @Param limit query int false "pagination limit"
// @Success 200 {object} map[string]interface{}
// @Router /api/graph/nodes/search [get]
func (h *GraphHandler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	nodes, total, err := h.facade.Search(r.Context(), q.Get("q"), q.Get("language"), q.Get("kind"),
		queryInt(r, "offset", 0), queryInt(r, "limit", 0))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, start, map[string]interface{}{"nodes": nodes, "total": total})
}

type traverseRequest struct {
	StartID      string `json:"startId" validate:"required"`
	Kind         string `json:"kind" validate:"omitempty,oneof=bfs dfs"`
	MaxDepth     int    `json:"maxDepth" validate:"gte=0"`
	IncludeSeams bool   `json:"includeSeams"`
	Offset       int    `json:"offset" validate:"gte=0"`
	Limit        int    `json:"limit" validate:"gte=0"`
}

// Traverse handles POST /api/graph/traverse.
// @Summary Traverse the graph from a starting node
// @Description Walks outgoing relationships breadth- or depth-first up to maxDepth, optionally following seam edges
// @Tags graph
// @Accept json
// @Produce json
// @Param request body traverseRequest true "traversal parameters"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorBody
// @Router /api/graph/traverse [post]
func (h *GraphHandler) Traverse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req traverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.NewInvalidIdentifier("invalid request body: "+err.Error()))
		return
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, err)
		return
	}
	levels, total, err := h.facade.Traverse(r.Context(), query.TraverseParams{
		StartID:      req.StartID,
		Kind:         req.Kind,
		MaxDepth:     req.MaxDepth,
		IncludeSeams: req.IncludeSeams,
		Offset:       req.Offset,
		Limit:        req.Limit,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, start, map[string]interface{}{"levels": levels, "total": total})
}

// CallChain handles GET /api/graph/call-chain/{startId}.
func (h *GraphHandler) CallChain(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path, err := h.facade.CallChain(r.Context(), query.CallChainParams{
		StartID:     chi.URLParam(r, "startId"),
		TargetID:    r.URL.Query().Get("targetId"),
		FollowSeams: queryBool(r, "followSeams"),
		MaxDepth:    queryInt(r, "maxDepth", 0),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, start, map[string]interface{}{"path": path})
}

// Query handles GET /api/graph/query/{callers|callees|references}.
func (h *GraphHandler) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	relation := chi.URLParam(r, "relation")
	symbol := r.URL.Query().Get("symbol")
	offset, limit := queryInt(r, "offset", 0), queryInt(r, "limit", 0)

	switch relation {
	case "callers":
		ns, total, err := h.facade.Callers(r.Context(), symbol, offset, limit)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeResult(w, start, map[string]interface{}{"nodes": ns, "total": total})
	case "callees":
		ns, total, err := h.facade.Callees(r.Context(), symbol, offset, limit)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeResult(w, start, map[string]interface{}{"nodes": ns, "total": total})
	case "references":
		ns, total, err := h.facade.References(r.Context(), symbol, offset, limit)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeResult(w, start, map[string]interface{}{"nodes": ns, "total": total})
	default:
		h.writeError(w, apperrors.NewInvalidIdentifier("unknown relation: "+relation))
	}
}

// Categories handles GET /api/graph/categories/{entryPoints|hubs|leaves}.
func (h *GraphHandler) Categories(w http.ResponseWriter, r *http.Request, hubThreshold int) {
	start := time.Now()
	category := chi.URLParam(r, "category")
	nodes, total, err := h.facade.Categorize(r.Context(), category, hubThreshold,
		queryInt(r, "offset", 0), queryInt(r, "limit", 0))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, start, map[string]interface{}{"nodes": nodes, "total": total})
}

// Seams handles GET /api/graph/seams.
func (h *GraphHandler) Seams(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rels, total, err := h.facade.Seams(r.Context(), queryInt(r, "offset", 0), queryInt(r, "limit", 0))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, start, map[string]interface{}{"relationships": rels, "total": total})
}

type subgraphRequest struct {
	NodeID  string   `json:"nodeId"`
	NodeIDs []string `json:"nodeIds"`
	Depth   int      `json:"depth" validate:"gte=0"`
	Limit   int      `json:"limit" validate:"gte=0"`
}

// Subgraph handles POST /api/graph/subgraph.
// @Summary Extract an induced subgraph around seed nodes
// @Description Expands from one or more seed node ids up to depth, capped at limit nodes
// @Tags graph
// @Accept json
// @Produce json
// @Param request body subgraphRequest true "subgraph parameters"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorBody
// @Router /api/graph/subgraph [post]
func (h *GraphHandler) Subgraph(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req subgraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.NewInvalidIdentifier("invalid request body: "+err.Error()))
		return
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.NodeID == "" && len(req.NodeIDs) == 0 {
		h.writeError(w, apperrors.NewInvalidIdentifier("subgraph request requires nodeId or nodeIds"))
		return
	}
	seeds := req.NodeIDs
	if req.NodeID != "" {
		seeds = append(seeds, req.NodeID)
	}
	sg, err := h.facade.Subgraph(r.Context(), query.SubgraphParams{SeedIDs: seeds, Depth: req.Depth, Limit: req.Limit})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, start, map[string]interface{}{"subgraph": sg})
}

// ForceReanalysis handles POST /api/graph/admin/reanalyze.
// @Summary Force a full re-ingestion
// @Description Synchronously runs the configured parser and applies the resulting batch to the graph, blocking until it completes
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} errorBody
// @Security BearerAuth
// @Router /api/graph/admin/reanalyze [post]
func (h *GraphHandler) ForceReanalysis(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	payload, err := h.facade.ForceReanalysis(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, start, map[string]interface{}{"result": payload})
}
