package query

import (
	"context"
	"testing"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.New(nil)
	nodes := []graph.Node{
		{ID: "function:a.go:main:1", Name: "main", Kind: graph.KindFunction, Language: "go", File: "a.go", Line: 1},
		{ID: "function:a.go:helper:5", Name: "helper", Kind: graph.KindFunction, Language: "go", File: "a.go", Line: 5},
	}
	for _, n := range nodes {
		_, err := s.UpsertNode(n)
		require.NoError(t, err)
	}
	_, err := s.UpsertRelationship(graph.Relationship{
		SourceID: "function:a.go:main:1",
		TargetID: "function:a.go:helper:5",
		Type:     graph.RelationCalls,
	})
	require.NoError(t, err)
	return s
}

func TestFacade_StatsReflectsStore(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	stats := f.Stats(context.Background())
	assert.Equal(t, 2, stats.TotalNodes)
	assert.Equal(t, 1, stats.TotalRelationships)
}

func TestFacade_GetNode_UnknownIsNotFound(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	_, err := f.GetNode(context.Background(), "missing")
	require.Error(t, err)
}

func TestFacade_Search_FiltersByLanguageAndKind(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	nodes, total, err := f.Search(context.Background(), "", "go", "function", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, nodes, 2)
}

func TestFacade_Traverse_DefaultsToBFS(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	levels, total, err := f.Traverse(context.Background(), TraverseParams{StartID: "function:a.go:main:1", MaxDepth: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, levels, 2)
}

func TestFacade_CallChain_FindsPath(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	path, err := f.CallChain(context.Background(), CallChainParams{
		StartID: "function:a.go:main:1", TargetID: "function:a.go:helper:5", MaxDepth: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"function:a.go:main:1", "function:a.go:helper:5"}, path)
}

func TestFacade_CallersAndCallees(t *testing.T) {
	f := New(buildStore(t), nil, nil)

	callees, total, err := f.Callees(context.Background(), "function:a.go:main:1", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "helper", callees[0].Name)

	callers, total, err := f.Callers(context.Background(), "function:a.go:helper:5", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "main", callers[0].Name)
}

func TestFacade_Categorize_UnknownCategoryIsInvalid(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	_, _, err := f.Categorize(context.Background(), "bogus", 2, 0, 0)
	require.Error(t, err)
}

func TestFacade_Categorize_EntryPoints(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	nodes, total, err := f.Categorize(context.Background(), "entryPoints", 2, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "main", nodes[0].Name)
}

func TestFacade_Subgraph_RespectsLimit(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	sg, err := f.Subgraph(context.Background(), SubgraphParams{
		SeedIDs: []string{"function:a.go:main:1"}, Depth: 2, Limit: 1,
	})
	require.NoError(t, err)
	assert.Len(t, sg.Nodes, 1)
}

func TestFacade_ForceReanalysis_NoParserConfiguredIsError(t *testing.T) {
	f := New(buildStore(t), nil, nil)
	_, err := f.ForceReanalysis(context.Background())
	require.Error(t, err)
}
