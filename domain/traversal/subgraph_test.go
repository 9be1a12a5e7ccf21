package traversal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSubgraph_DepthZeroIsJustSeeds(t *testing.T) {
	s := buildChain(t)
	sg, err := ExtractSubgraph(s, []string{idFor(t, s, "main")}, 0, 0)
	require.NoError(t, err)
	require.Len(t, sg.Nodes, 1)
	assert.Empty(t, sg.Relationships)
}

func TestExtractSubgraph_GrowsByDepth(t *testing.T) {
	s := buildChain(t)
	sg, err := ExtractSubgraph(s, []string{idFor(t, s, "main")}, 2, 0)
	require.NoError(t, err)
	require.Len(t, sg.Nodes, 3) // main, a, b
	require.Len(t, sg.Relationships, 2)
}

func TestExtractSubgraph_UnknownSeed(t *testing.T) {
	s := buildChain(t)
	_, err := ExtractSubgraph(s, []string{"missing"}, 1, 0)
	require.Error(t, err)
}

func TestExtractSubgraph_LimitTruncatesNodesAndInducedEdges(t *testing.T) {
	s := buildChain(t)
	sg, err := ExtractSubgraph(s, []string{idFor(t, s, "main")}, 2, 2)
	require.NoError(t, err)
	require.Len(t, sg.Nodes, 2)
	for _, rel := range sg.Relationships {
		foundSource, foundTarget := false, false
		for _, n := range sg.Nodes {
			if n.ID == rel.SourceID {
				foundSource = true
			}
			if n.ID == rel.TargetID {
				foundTarget = true
			}
		}
		assert.True(t, foundSource && foundTarget)
	}
}
