package traversal

import (
	"sort"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
)

// Subgraph is an induced view of the graph: every node in Nodes, and
// every relationship from the store whose endpoints are both in Nodes.
type Subgraph struct {
	Nodes         []graph.Node
	Relationships []graph.Relationship
}

// ExtractSubgraph grows a subgraph from seedIDs by following edges of
// any type in either direction (outgoing and incoming) up to depth hops
// (0 means just the seeds themselves),
// then induces every relationship whose endpoints both landed in the
// resulting node set. The node set is sorted deterministically and
// truncated at limit (0 means unlimited) before relationships are
// induced, so a truncated result never references a node outside it.
// Unknown seed ids are a not_found error.
func ExtractSubgraph(s *graph.Store, seedIDs []string, depth, limit int) (Subgraph, error) {
	included := map[string]bool{}
	for _, id := range seedIDs {
		if _, ok := s.GetNode(id); !ok {
			return Subgraph{}, apperrors.NewNotFound("seed node not found: " + id)
		}
		included[id] = true
	}

	frontier := append([]string{}, seedIDs...)
	for hop := 0; hop < depth; hop++ {
		var next []string
		for _, id := range frontier {
			for _, rel := range s.OutgoingEdges(id) {
				if !included[rel.TargetID] {
					included[rel.TargetID] = true
					next = append(next, rel.TargetID)
				}
			}
			for _, rel := range s.IncomingEdges(id) {
				if !included[rel.SourceID] {
					included[rel.SourceID] = true
					next = append(next, rel.SourceID)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	nodes := make([]graph.Node, 0, len(included))
	for id := range included {
		if n, ok := s.GetNode(id); ok {
			nodes = append(nodes, n)
		}
	}
	sortNodesDeterministic(nodes)
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	included = make(map[string]bool, len(nodes))
	for _, n := range nodes {
		included[n.ID] = true
	}

	var rels []graph.Relationship
	for _, rel := range s.AllRelationships() {
		if included[rel.SourceID] && included[rel.TargetID] {
			rels = append(rels, rel)
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].SourceID != rels[j].SourceID {
			return rels[i].SourceID < rels[j].SourceID
		}
		if rels[i].TargetID != rels[j].TargetID {
			return rels[i].TargetID < rels[j].TargetID
		}
		return rels[i].Type < rels[j].Type
	})

	return Subgraph{Nodes: nodes, Relationships: rels}, nil
}
