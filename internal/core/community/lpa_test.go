package community

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLPA_DisconnectedComponents(t *testing.T) {
	// [0-1-2-0] and [3-4-5-3], completely disconnected
	links := []Link{
		{0, 1}, {1, 2}, {2, 0},
		{3, 4}, {4, 5}, {5, 3},
	}

	groups := NewLabelPropagationDetector().Detect(6, links)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}}, groups)
}

func TestLPA_BridgeNode(t *testing.T) {
	// Two triangles joined by 2-3. Intra-triangle links outweigh the bridge.
	links := []Link{
		{0, 1}, {1, 2}, {2, 0},
		{2, 3},
		{3, 4}, {4, 5}, {5, 3},
	}

	groups := NewLabelPropagationDetector().Detect(6, links)
	assert.Len(t, groups, 2)
	for _, g := range groups {
		assert.Len(t, g, 3)
	}
}

func TestLPA_Empty(t *testing.T) {
	assert.Nil(t, NewLabelPropagationDetector().Detect(0, nil))
}
