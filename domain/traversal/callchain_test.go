package traversal

import (
	"testing"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallChain_FindsShortestPath(t *testing.T) {
	s := buildChain(t)
	path, err := CallChain(s, idFor(t, s, "main"), idFor(t, s, "c"), 0)
	require.NoError(t, err)
	require.Len(t, path, 4)
	assert.Equal(t, idFor(t, s, "main"), path[0])
	assert.Equal(t, idFor(t, s, "c"), path[3])
}

func TestCallChain_NoPathWithinDepth(t *testing.T) {
	s := buildChain(t)
	_, err := CallChain(s, idFor(t, s, "main"), idFor(t, s, "c"), 1)
	require.Error(t, err)
}

func TestCallChain_SameStartAndTarget(t *testing.T) {
	s := buildChain(t)
	path, err := CallChain(s, idFor(t, s, "main"), idFor(t, s, "main"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{idFor(t, s, "main")}, path)
}

func TestFindCallersAndCallees(t *testing.T) {
	s := buildChain(t)

	callers, total, err := FindCallers(s, idFor(t, s, "a"), 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "main", callers[0].Name)

	callees, total, err := FindCallees(s, idFor(t, s, "a"), 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "b", callees[0].Name)
}

func TestFindReferences(t *testing.T) {
	s := graph.New(nil)
	modID, err := graph.NewID(graph.KindModule, "pkg.go", "pkg", 1)
	require.NoError(t, err)
	fnID, err := graph.NewID(graph.KindFunction, "main.go", "main", 1)
	require.NoError(t, err)
	_, err = s.UpsertNode(graph.Node{ID: modID, Name: "pkg", Kind: graph.KindModule, Language: "go", File: "pkg.go", Line: 1})
	require.NoError(t, err)
	_, err = s.UpsertNode(graph.Node{ID: fnID, Name: "main", Kind: graph.KindFunction, Language: "go", File: "main.go", Line: 1})
	require.NoError(t, err)
	_, err = s.UpsertRelationship(graph.Relationship{SourceID: fnID, TargetID: modID, Type: graph.RelationReferences})
	require.NoError(t, err)

	refs, total, err := FindReferences(s, "pkg", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "main", refs[0].Name)
}
