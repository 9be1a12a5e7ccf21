// Package query implements the narrow read-only facade (C8) exposed to
// the HTTP interface layer. Every operation is a pure function of the
// current graph snapshot, wrapped in its own OpenTelemetry span in the
// style of the teacher's tracedNodeRepository: start a span named for
// the operation, defer its end, record any returned error on it.
package query

import (
	"context"

	"github.com/ajacobm/code-graph-mcp-sub002/application/ingestion"
	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	"github.com/ajacobm/code-graph-mcp-sub002/domain/traversal"
	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Facade is the query-side API the HTTP interface and any other
// consumer (e.g. an MCP tool surface) is built against. It never
// mutates the graph except indirectly, through ForceReanalysis.
type Facade struct {
	store  *graph.Store
	parser *ingestion.ParserInvoker
	tracer trace.Tracer
}

// New builds a Facade. parser may be nil if ForceReanalysis is never
// called (e.g. a read-only deployment driven entirely by an external
// ingestion process).
func New(store *graph.Store, parser *ingestion.ParserInvoker, tracer trace.Tracer) *Facade {
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("application/query")
	}
	return &Facade{store: store, parser: parser, tracer: tracer}
}

// TraverseParams mirrors the POST /api/graph/traverse request body.
type TraverseParams struct {
	StartID      string
	Kind         string // "bfs" (default) or "dfs"
	MaxDepth     int
	IncludeSeams bool
	Offset       int
	Limit        int
}

// CallChainParams mirrors the GET /api/graph/call-chain/{startId} query.
type CallChainParams struct {
	StartID     string
	TargetID    string
	FollowSeams bool
	MaxDepth    int
}

// SubgraphParams mirrors the POST /api/graph/subgraph request body.
type SubgraphParams struct {
	SeedIDs []string
	Depth   int
	Limit   int
}

func (f *Facade) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return f.tracer.Start(ctx, "facade."+op, trace.WithAttributes(attrs...))
}

// Stats returns the current graph-wide counts.
func (f *Facade) Stats(ctx context.Context) graph.Stats {
	_, span := f.span(ctx, "Stats")
	defer span.End()
	return f.store.Stats()
}

// GetNode returns the node with the given id, or a not_found error.
func (f *Facade) GetNode(ctx context.Context, id string) (graph.Node, error) {
	_, span := f.span(ctx, "GetNode", attribute.String("node.id", id))
	defer span.End()

	n, ok := f.store.GetNode(id)
	if !ok {
		err := apperrors.NewNotFound("node not found: " + id)
		span.RecordError(err)
		return graph.Node{}, err
	}
	return n, nil
}

// Search returns nodes whose name matches prefix, optionally filtered
// by language and kind, as a page plus the total match count.
func (f *Facade) Search(ctx context.Context, prefix, language, kind string, offset, limit int) ([]graph.Node, int, error) {
	_, span := f.span(ctx, "Search",
		attribute.String("query.prefix", prefix),
		attribute.String("query.language", language),
		attribute.String("query.kind", kind),
	)
	defer span.End()

	nodes, total := f.store.SearchByName(prefix, language, kind, offset, limit)
	return nodes, total, nil
}

// Traverse walks the graph breadth- or depth-first from params.StartID.
func (f *Facade) Traverse(ctx context.Context, params TraverseParams) ([]traversal.DepthLevel, int, error) {
	_, span := f.span(ctx, "Traverse",
		attribute.String("node.id", params.StartID),
		attribute.String("traverse.kind", params.Kind),
	)
	defer span.End()

	opts := traversal.Options{
		MaxDepth:     params.MaxDepth,
		IncludeSeams: params.IncludeSeams,
		Offset:       params.Offset,
		Limit:        params.Limit,
	}

	var (
		levels []traversal.DepthLevel
		total  int
		err    error
	)
	if params.Kind == "dfs" {
		levels, total, err = traversal.DFS(f.store, params.StartID, opts)
	} else {
		levels, total, err = traversal.BFS(f.store, params.StartID, opts)
	}
	if err != nil {
		span.RecordError(err)
	}
	return levels, total, err
}

// CallChain returns the shortest calls-typed path from StartID to
// TargetID, or a not_found error if either endpoint is unknown or no
// path exists within MaxDepth.
func (f *Facade) CallChain(ctx context.Context, params CallChainParams) ([]string, error) {
	_, span := f.span(ctx, "CallChain",
		attribute.String("node.start", params.StartID),
		attribute.String("node.target", params.TargetID),
	)
	defer span.End()

	path, err := traversal.CallChain(f.store, params.StartID, params.TargetID, params.MaxDepth)
	if err != nil {
		span.RecordError(err)
	}
	return path, err
}

// Callers returns the nodes with an outgoing calls edge into id.
func (f *Facade) Callers(ctx context.Context, id string, offset, limit int) ([]graph.Node, int, error) {
	_, span := f.span(ctx, "Callers", attribute.String("node.id", id))
	defer span.End()

	nodes, total, err := traversal.FindCallers(f.store, id, offset, limit)
	if err != nil {
		span.RecordError(err)
	}
	return nodes, total, err
}

// Callees returns the nodes id has an outgoing calls edge into.
func (f *Facade) Callees(ctx context.Context, id string, offset, limit int) ([]graph.Node, int, error) {
	_, span := f.span(ctx, "Callees", attribute.String("node.id", id))
	defer span.End()

	nodes, total, err := traversal.FindCallees(f.store, id, offset, limit)
	if err != nil {
		span.RecordError(err)
	}
	return nodes, total, err
}

// References returns the nodes referencing the given symbol name.
func (f *Facade) References(ctx context.Context, symbolName string, offset, limit int) ([]graph.Node, int, error) {
	_, span := f.span(ctx, "References", attribute.String("symbol.name", symbolName))
	defer span.End()

	nodes, total, err := traversal.FindReferences(f.store, symbolName, offset, limit)
	if err != nil {
		span.RecordError(err)
	}
	return nodes, total, err
}

// Categorize returns a page of nodes in the given structural category:
// entryPoints, hubs, or leaves.
func (f *Facade) Categorize(ctx context.Context, category string, hubThreshold, offset, limit int) ([]graph.Node, int, error) {
	_, span := f.span(ctx, "Categorize", attribute.String("category", category))
	defer span.End()

	var (
		nodes []graph.Node
		total int
		err   error
	)
	switch category {
	case "entryPoints":
		nodes, total, err = traversal.EntryPoints(f.store, offset, limit)
	case "hubs":
		nodes, total, err = traversal.Hubs(f.store, hubThreshold, offset, limit)
	case "leaves":
		nodes, total, err = traversal.Leaves(f.store, offset, limit)
	default:
		err = apperrors.NewInvalidIdentifier("unknown category: " + category)
	}
	if err != nil {
		span.RecordError(err)
	}
	return nodes, total, err
}

// Seams returns a page of cross-language relationships.
func (f *Facade) Seams(ctx context.Context, offset, limit int) ([]graph.Relationship, int, error) {
	_, span := f.span(ctx, "Seams")
	defer span.End()

	rels, total, err := traversal.Seams(f.store, offset, limit)
	if err != nil {
		span.RecordError(err)
	}
	return rels, total, err
}

// Subgraph extracts an induced subgraph grown from params.SeedIDs.
func (f *Facade) Subgraph(ctx context.Context, params SubgraphParams) (traversal.Subgraph, error) {
	_, span := f.span(ctx, "Subgraph", attribute.Int("subgraph.seeds", len(params.SeedIDs)))
	defer span.End()

	sg, err := traversal.ExtractSubgraph(f.store, params.SeedIDs, params.Depth, params.Limit)
	if err != nil {
		span.RecordError(err)
	}
	return sg, err
}

// ForceReanalysis triggers C7 against the currently configured parser
// command and returns once that batch has been fully applied (or
// rolled back). It errors immediately, without running the parser, if
// no ParserInvoker was configured for this Facade.
func (f *Facade) ForceReanalysis(ctx context.Context) (cdc.CompletedPayload, error) {
	_, span := f.span(ctx, "ForceReanalysis")
	defer span.End()

	if f.parser == nil {
		err := apperrors.NewInternal("no parser configured for this facade", nil)
		span.RecordError(err)
		return cdc.CompletedPayload{}, err
	}

	payload, err := f.parser.Run(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return payload, err
}
