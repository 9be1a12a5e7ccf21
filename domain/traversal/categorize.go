package traversal

import "github.com/ajacobm/code-graph-mcp-sub002/domain/graph"

// callDegree reports the number of incoming and outgoing "calls" edges
// for id.
func callDegree(s *graph.Store, id string) (in, out int) {
	for _, rel := range s.IncomingEdges(id) {
		if rel.Type == graph.RelationCalls {
			in++
		}
	}
	for _, rel := range s.OutgoingEdges(id) {
		if rel.Type == graph.RelationCalls {
			out++
		}
	}
	return in, out
}

func callableNodes(s *graph.Store) []graph.Node {
	var out []graph.Node
	for _, id := range s.AllNodeIDs() {
		if n, ok := s.GetNode(id); ok && (n.Kind == graph.KindFunction || n.Kind == graph.KindMethod) {
			out = append(out, n)
		}
	}
	return out
}

// EntryPoints returns function/method nodes with no incoming "calls"
// edge but at least one outgoing one: the roots of the call graph.
func EntryPoints(s *graph.Store, offset, limit int) ([]graph.Node, int, error) {
	var out []graph.Node
	for _, n := range callableNodes(s) {
		in, out2 := callDegree(s, n.ID)
		if in == 0 && out2 > 0 {
			out = append(out, n)
		}
	}
	return page(out, offset, limit)
}

// Hubs returns function/method nodes whose total "calls" degree
// (incoming + outgoing) is at least threshold, ordered by descending
// degree then file/line/id.
func Hubs(s *graph.Store, threshold, offset, limit int) ([]graph.Node, int, error) {
	type scored struct {
		node   graph.Node
		degree int
	}
	var candidates []scored
	for _, n := range callableNodes(s) {
		in, out := callDegree(s, n.ID)
		if total := in + out; total >= threshold {
			candidates = append(candidates, scored{n, total})
		}
	}
	nodesOnly := make([]graph.Node, len(candidates))
	for i, c := range candidates {
		nodesOnly[i] = c.node
	}
	sortNodesDeterministic(nodesOnly)
	// Stable re-sort by degree descending, preserving the deterministic
	// tie-break already applied above.
	degreeOf := make(map[string]int, len(candidates))
	for _, c := range candidates {
		degreeOf[c.node.ID] = c.degree
	}
	stableSortByDegreeDesc(nodesOnly, degreeOf)

	total := len(nodesOnly)
	idx := paginate(total, offset, limit)
	out := make([]graph.Node, 0, len(idx))
	for _, i := range idx {
		out = append(out, nodesOnly[i])
	}
	return out, total, nil
}

func stableSortByDegreeDesc(nodes []graph.Node, degree map[string]int) {
	// insertion sort: stable, small N expected, keeps the prior
	// file/line/id ordering as the tie-break.
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && degree[nodes[j-1].ID] < degree[nodes[j].ID]; j-- {
			nodes[j-1], nodes[j] = nodes[j], nodes[j-1]
		}
	}
}

// Leaves returns function/method nodes with at least one incoming
// "calls" edge but none outgoing: the terminal nodes of the call graph.
func Leaves(s *graph.Store, offset, limit int) ([]graph.Node, int, error) {
	var out []graph.Node
	for _, n := range callableNodes(s) {
		in, out2 := callDegree(s, n.ID)
		if out2 == 0 && in > 0 {
			out = append(out, n)
		}
	}
	return page(out, offset, limit)
}
