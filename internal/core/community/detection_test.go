package community

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	links := []Link{
		{0, 1}, // A-B
		{1, 2}, // B-C
		// D is isolated
	}

	groups := NewComponentDetector().Detect(4, links)

	// Expect A-B-C as one group. D is size 1, so filtered out.
	assert.Equal(t, [][]int{{0, 1, 2}}, groups)
}

func TestDetect_MultipleGroups(t *testing.T) {
	links := []Link{{3, 2}, {0, 1}, {1, 1}, {7, 0}}

	groups := NewComponentDetector().Detect(4, links)

	// Self and out-of-range links are ignored
	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, groups)
}

func TestDetect_LongChain(t *testing.T) {
	var links []Link
	for i := 0; i+1 < 10000; i++ {
		links = append(links, Link{i, i + 1})
	}

	groups := NewComponentDetector().Detect(10000, links)
	assert.Len(t, groups, 1)
	assert.Len(t, groups[0], 10000)
}
