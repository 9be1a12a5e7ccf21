package traversal

import (
	"testing"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	"github.com/stretchr/testify/require"
)

// buildChain constructs main -> a -> b -> c, all "calls" edges, all go.
func buildChain(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.New(nil)
	names := []string{"main", "a", "b", "c"}
	ids := make(map[string]string, len(names))
	for i, n := range names {
		id, err := graph.NewID(graph.KindFunction, "chain.go", n, i+1)
		require.NoError(t, err)
		ids[n] = id
		_, err = s.UpsertNode(graph.Node{ID: id, Name: n, Kind: graph.KindFunction, Language: "go", File: "chain.go", Line: i + 1})
		require.NoError(t, err)
	}
	for i := 0; i < len(names)-1; i++ {
		_, err := s.UpsertRelationship(graph.Relationship{SourceID: ids[names[i]], TargetID: ids[names[i+1]], Type: graph.RelationCalls})
		require.NoError(t, err)
	}
	return s
}

// buildDiamond constructs entry -> mid1, entry -> mid2, mid1 -> leaf,
// mid2 -> leaf, all "calls" edges.
func buildDiamond(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.New(nil)
	names := []string{"entry", "mid1", "mid2", "leaf"}
	ids := make(map[string]string, len(names))
	for i, n := range names {
		id, err := graph.NewID(graph.KindFunction, "diamond.go", n, i+1)
		require.NoError(t, err)
		ids[n] = id
		_, err = s.UpsertNode(graph.Node{ID: id, Name: n, Kind: graph.KindFunction, Language: "go", File: "diamond.go", Line: i + 1})
		require.NoError(t, err)
	}
	edges := [][2]string{{"entry", "mid1"}, {"entry", "mid2"}, {"mid1", "leaf"}, {"mid2", "leaf"}}
	for _, e := range edges {
		_, err := s.UpsertRelationship(graph.Relationship{SourceID: ids[e[0]], TargetID: ids[e[1]], Type: graph.RelationCalls})
		require.NoError(t, err)
	}
	return s
}

func idFor(t *testing.T, s *graph.Store, name string) string {
	t.Helper()
	id, err := graph.NewID(graph.KindFunction, "chain.go", name, indexOf(name)+1)
	require.NoError(t, err)
	_, ok := s.GetNode(id)
	require.True(t, ok)
	return id
}

func indexOf(name string) int {
	for i, n := range []string{"main", "a", "b", "c"} {
		if n == name {
			return i
		}
	}
	return -1
}

func flattenNames(levels []DepthLevel) []string {
	var out []string
	for _, l := range levels {
		for _, n := range l.Nodes {
			out = append(out, n.Name)
		}
	}
	return out
}

func flattenCount(levels []DepthLevel) int {
	n := 0
	for _, l := range levels {
		n += len(l.Nodes)
	}
	return n
}

func TestBFS_VisitsEachNodeOnce(t *testing.T) {
	s := buildChain(t)
	levels, total, err := BFS(s, idFor(t, s, "main"), Options{})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Equal(t, []string{"main", "a", "b", "c"}, flattenNames(levels))
	require.Len(t, levels, 4)
	require.Equal(t, 0, levels[0].Depth)
	require.Equal(t, 3, levels[3].Depth)
}

func TestBFS_RespectsMaxDepth(t *testing.T) {
	s := buildChain(t)
	levels, total, err := BFS(s, idFor(t, s, "main"), Options{MaxDepth: 1})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, 2, flattenCount(levels))
}

func TestBFS_UnknownStartIsEmptyNotError(t *testing.T) {
	s := buildChain(t)
	levels, total, err := BFS(s, "does-not-exist", Options{})
	require.NoError(t, err)
	require.Equal(t, 0, total)
	require.Empty(t, levels)
}

func TestBFS_ExcludesSeamsByDefault(t *testing.T) {
	s := graph.New(nil)
	pyID, err := graph.NewID(graph.KindFunction, "a.py", "handle", 10)
	require.NoError(t, err)
	tsID, err := graph.NewID(graph.KindFunction, "lib.ts", "worker", 3)
	require.NoError(t, err)
	require.NoError(t, upsert(s, graph.Node{ID: pyID, Name: "handle", Kind: graph.KindFunction, Language: "python", File: "a.py", Line: 10}))
	require.NoError(t, upsert(s, graph.Node{ID: tsID, Name: "worker", Kind: graph.KindFunction, Language: "typescript", File: "lib.ts", Line: 3}))
	_, err = s.UpsertRelationship(graph.Relationship{SourceID: pyID, TargetID: tsID, Type: graph.RelationCalls})
	require.NoError(t, err)

	withoutSeams, total, err := BFS(s, pyID, Options{MaxDepth: 1})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, []string{"handle"}, flattenNames(withoutSeams))

	withSeams, total, err := BFS(s, pyID, Options{MaxDepth: 1, IncludeSeams: true})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, []string{"handle", "worker"}, flattenNames(withSeams))
}

func upsert(s *graph.Store, n graph.Node) error {
	_, err := s.UpsertNode(n)
	return err
}

func TestDFS_VisitsEachNodeOnce(t *testing.T) {
	s := buildChain(t)
	levels, total, err := DFS(s, idFor(t, s, "main"), Options{})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Equal(t, 4, flattenCount(levels))
}

func TestBFS_Pagination(t *testing.T) {
	s := buildChain(t)
	page1, total, err := BFS(s, idFor(t, s, "main"), Options{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Equal(t, 2, flattenCount(page1))

	page2, total, err := BFS(s, idFor(t, s, "main"), Options{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Equal(t, 2, flattenCount(page2))
	require.NotEqual(t, flattenNames(page1)[0], flattenNames(page2)[0])
}
