package mmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_ValidateDetectsDanglingEdge(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{{Source: "a", Target: "missing"}},
	}

	err := g.Validate()
	require.Error(t, err)
}

func TestGraph_ValidateAcceptsConsistentEdges(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{{Source: "a", Target: "b", Type: EdgeTypeForeignKey}},
	}

	assert.NoError(t, g.Validate())
}

func TestGraph_Recompute(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []Edge{{Source: "a", Target: "b"}},
	}

	g.Recompute()

	assert.Equal(t, 3, g.Statistics.NodeCount)
	assert.Equal(t, 1, g.Statistics.EdgeCount)
}
