// Package traversal implements the read-only graph algorithms (C3):
// breadth/depth-first walks, call-chain discovery, caller/callee/reference
// lookup, structural categorization, seam listing, and subgraph
// extraction. Every function here takes a *graph.Store; the list
// queries (BFS, DFS, callers/callees/references, categories, seams)
// return a page of results plus the total matching count, the paging
// contract the query facade and HTTP surface both depend on.
package traversal

import (
	"sort"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
)

// DepthLevel groups the nodes discovered at a single BFS/DFS depth.
// Depth 0 contains exactly the start node, unless an offset pages it
// out of the result.
type DepthLevel struct {
	Depth int
	Nodes []graph.Node
}

// Options controls a BFS/DFS walk over outgoing edges.
type Options struct {
	MaxDepth     int // 0 means unbounded
	IncludeSeams bool
	Offset       int
	Limit        int
}

func (o Options) admits(rel graph.Relationship) bool {
	return o.IncludeSeams || !rel.IsSeam
}

// BFS walks the graph breadth-first from startID over outgoing edges,
// visiting each node at most once (cycles broken by a visited set), and
// returns the discovered nodes grouped by depth (0..maxDepth) plus the
// total node count discovered. An absent startID yields an empty
// result, not an error.
func BFS(s *graph.Store, startID string, opts Options) ([]DepthLevel, int, error) {
	if _, ok := s.GetNode(startID); !ok {
		return nil, 0, nil
	}

	visited := map[string]bool{startID: true}
	levels := []DepthLevel{{Depth: 0, Nodes: mustNodes(s, []string{startID})}}
	frontier := []string{startID}
	total := 1

	for depth := 0; (opts.MaxDepth == 0 || depth < opts.MaxDepth) && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, rel := range s.OutgoingEdges(id) {
				if !opts.admits(rel) || visited[rel.TargetID] {
					continue
				}
				visited[rel.TargetID] = true
				next = append(next, rel.TargetID)
			}
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, DepthLevel{Depth: depth + 1, Nodes: mustNodes(s, next)})
		total += len(next)
		frontier = next
	}

	return paginateLevels(levels, total, opts.Offset, opts.Limit), total, nil
}

// DFS walks the graph depth-first (pre-order) from startID over
// outgoing edges, visiting each node at most once, and returns the
// discovered nodes grouped by discovery depth plus the total node count
// discovered. An absent startID yields an empty result, not an error.
func DFS(s *graph.Store, startID string, opts Options) ([]DepthLevel, int, error) {
	if _, ok := s.GetNode(startID); !ok {
		return nil, 0, nil
	}

	visited := map[string]bool{}
	byDepth := map[int][]string{}
	maxDepthSeen := 0

	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		byDepth[depth] = append(byDepth[depth], id)
		if depth > maxDepthSeen {
			maxDepthSeen = depth
		}
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			return
		}
		for _, rel := range s.OutgoingEdges(id) {
			if !opts.admits(rel) || visited[rel.TargetID] {
				continue
			}
			visit(rel.TargetID, depth+1)
		}
	}
	visit(startID, 0)

	var levels []DepthLevel
	total := 0
	for depth := 0; depth <= maxDepthSeen; depth++ {
		ids, ok := byDepth[depth]
		if !ok {
			continue
		}
		levels = append(levels, DepthLevel{Depth: depth, Nodes: mustNodes(s, ids)})
		total += len(ids)
	}

	return paginateLevels(levels, total, opts.Offset, opts.Limit), total, nil
}

func mustNodes(s *graph.Store, ids []string) []graph.Node {
	out := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.GetNode(id); ok {
			out = append(out, n)
		}
	}
	return out
}

// paginateLevels applies the (offset, limit) paging contract across the
// flattened depth-ordered node sequence, then re-groups the surviving
// nodes back into their depth levels.
func paginateLevels(levels []DepthLevel, total, offset, limit int) []DepthLevel {
	idx := paginate(total, offset, limit)
	if len(idx) == 0 {
		return nil
	}
	wanted := make(map[int]bool, len(idx))
	for _, i := range idx {
		wanted[i] = true
	}

	var out []DepthLevel
	pos := 0
	for _, level := range levels {
		var kept []graph.Node
		for _, n := range level.Nodes {
			if wanted[pos] {
				kept = append(kept, n)
			}
			pos++
		}
		if len(kept) > 0 {
			out = append(out, DepthLevel{Depth: level.Depth, Nodes: kept})
		}
	}
	return out
}

// paginate returns the slice indexes [offset, offset+limit) clamped to
// [0, total); limit<=0 means unbounded.
func paginate(total, offset, limit int) []int {
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	idx := make([]int, 0, end-offset)
	for i := offset; i < end; i++ {
		idx = append(idx, i)
	}
	return idx
}

// sortNodesDeterministic orders nodes by file then line then id, the
// tie-break every unordered query result uses.
func sortNodesDeterministic(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].File != nodes[j].File {
			return nodes[i].File < nodes[j].File
		}
		if nodes[i].Line != nodes[j].Line {
			return nodes[i].Line < nodes[j].Line
		}
		return nodes[i].ID < nodes[j].ID
	})
}
