package traversal

import (
	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
)

// CallChain finds the shortest call path from startID to targetID,
// following "calls" edges only. Returns the path as a list of node ids
// including both endpoints, or a not_found error if no path exists
// within maxDepth hops (0 means unbounded).
func CallChain(s *graph.Store, startID, targetID string, maxDepth int) ([]string, error) {
	if _, ok := s.GetNode(startID); !ok {
		return nil, apperrors.NewNotFound("start node not found: " + startID)
	}
	if _, ok := s.GetNode(targetID); !ok {
		return nil, apperrors.NewNotFound("target node not found: " + targetID)
	}
	if startID == targetID {
		return []string{startID}, nil
	}

	type frame struct {
		id    string
		depth int
	}
	visited := map[string]string{startID: ""} // child -> parent
	queue := []frame{{startID, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}
		for _, rel := range s.OutgoingEdges(cur.id) {
			if rel.Type != graph.RelationCalls {
				continue
			}
			if _, seen := visited[rel.TargetID]; seen {
				continue
			}
			visited[rel.TargetID] = cur.id
			if rel.TargetID == targetID {
				return reconstruct(visited, targetID), nil
			}
			queue = append(queue, frame{rel.TargetID, cur.depth + 1})
		}
	}

	return nil, apperrors.NewNotFound("no call chain found within depth limit")
}

func reconstruct(parent map[string]string, target string) []string {
	var path []string
	for id := target; id != ""; id = parent[id] {
		path = append([]string{id}, path...)
		if _, hasParent := parent[id]; !hasParent {
			break
		}
	}
	return path
}

// FindCallers returns the nodes with a direct "calls" edge targeting
// id, ordered by file/line/id, paginated.
func FindCallers(s *graph.Store, id string, offset, limit int) ([]graph.Node, int, error) {
	return relatedNodes(s, id, s.IncomingEdges(id), graph.RelationCalls, func(r graph.Relationship) string { return r.SourceID }, offset, limit)
}

// FindCallees returns the nodes id directly calls, ordered by
// file/line/id, paginated.
func FindCallees(s *graph.Store, id string, offset, limit int) ([]graph.Node, int, error) {
	return relatedNodes(s, id, s.OutgoingEdges(id), graph.RelationCalls, func(r graph.Relationship) string { return r.TargetID }, offset, limit)
}

// FindReferences returns, for every node whose name matches symbolName,
// the distinct source nodes of every edge (of any type) targeting it,
// ordered by file/line/id, paginated.
func FindReferences(s *graph.Store, symbolName string, offset, limit int) ([]graph.Node, int, error) {
	targets, _ := s.SearchByName(symbolName, "", "", 0, 0)
	targetIDs := map[string]bool{}
	for _, n := range targets {
		if n.Name == symbolName {
			targetIDs[n.ID] = true
		}
	}

	var out []graph.Node
	seen := map[string]bool{}
	for targetID := range targetIDs {
		for _, rel := range s.IncomingEdges(targetID) {
			if seen[rel.SourceID] {
				continue
			}
			seen[rel.SourceID] = true
			if n, ok := s.GetNode(rel.SourceID); ok {
				out = append(out, n)
			}
		}
	}
	return page(out, offset, limit)
}

func relatedNodes(s *graph.Store, id string, edges []graph.Relationship, want graph.RelationshipType, endpoint func(graph.Relationship) string, offset, limit int) ([]graph.Node, int, error) {
	if _, ok := s.GetNode(id); !ok {
		return nil, 0, apperrors.NewNotFound("node not found: " + id)
	}
	var out []graph.Node
	seen := map[string]bool{}
	for _, rel := range edges {
		if rel.Type != want {
			continue
		}
		other := endpoint(rel)
		if seen[other] {
			continue
		}
		seen[other] = true
		if n, ok := s.GetNode(other); ok {
			out = append(out, n)
		}
	}
	return page(out, offset, limit)
}

func page(nodes []graph.Node, offset, limit int) ([]graph.Node, int, error) {
	sortNodesDeterministic(nodes)
	total := len(nodes)
	idx := paginate(total, offset, limit)
	out := make([]graph.Node, 0, len(idx))
	for _, i := range idx {
		out = append(out, nodes[i])
	}
	return out, total, nil
}
