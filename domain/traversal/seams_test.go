package traversal

import (
	"testing"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeams_OnlyCrossLanguageEdges(t *testing.T) {
	s := graph.New(nil)
	pyID, err := graph.NewID(graph.KindFunction, "a.py", "handler", 1)
	require.NoError(t, err)
	goID, err := graph.NewID(graph.KindFunction, "b.go", "Handle", 1)
	require.NoError(t, err)
	goID2, err := graph.NewID(graph.KindFunction, "c.go", "Helper", 1)
	require.NoError(t, err)
	require.NoError(t, must2(s.UpsertNode(graph.Node{ID: pyID, Name: "handler", Kind: graph.KindFunction, Language: "python", File: "a.py", Line: 1})))
	require.NoError(t, must2(s.UpsertNode(graph.Node{ID: goID, Name: "Handle", Kind: graph.KindFunction, Language: "go", File: "b.go", Line: 1})))
	require.NoError(t, must2(s.UpsertNode(graph.Node{ID: goID2, Name: "Helper", Kind: graph.KindFunction, Language: "go", File: "c.go", Line: 1})))

	_, err = s.UpsertRelationship(graph.Relationship{SourceID: pyID, TargetID: goID, Type: graph.RelationCalls})
	require.NoError(t, err)
	_, err = s.UpsertRelationship(graph.Relationship{SourceID: goID, TargetID: goID2, Type: graph.RelationCalls})
	require.NoError(t, err)

	seams, total, err := Seams(s, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, pyID, seams[0].SourceID)
}

func must2(_ graph.UpsertResult, err error) error { return err }
