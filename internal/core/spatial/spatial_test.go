package spatial

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBound(r *rand.Rand) orb.Bound {
	x, y := r.Float64()*100, r.Float64()*100
	w, h := r.Float64()*10, r.Float64()*10
	return orb.Bound{Min: orb.Point{x, y}, Max: orb.Point{x + w, y + h}}
}

func TestQuadTree_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	qt := NewQuadTree[int](orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{110, 110}}, WithMaxItems(4))

	boxes := make([]orb.Bound, 500)
	for i := range boxes {
		boxes[i] = randomBound(r)
		qt.Insert(i, boxes[i])
	}
	// Drop every third box
	for i := 0; i < len(boxes); i += 3 {
		require.True(t, qt.Remove(i))
	}
	assert.False(t, qt.Remove(0))

	for k := 0; k < 50; k++ {
		q := randomBound(r)
		got := qt.Query(q)
		sort.Ints(got)

		var want []int
		for i, b := range boxes {
			if i%3 != 0 && b.Intersects(q) {
				want = append(want, i)
			}
		}
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 500-167, qt.Len())
}

func TestQuadTree_OutsideExtent(t *testing.T) {
	qt := NewQuadTree[string](orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}})
	qt.Insert("far", orb.Bound{Min: orb.Point{50, 50}, Max: orb.Point{51, 51}})

	assert.Equal(t, []string{"far"}, qt.Query(orb.Bound{Min: orb.Point{50.5, 50.5}, Max: orb.Point{60, 60}}))
	assert.Empty(t, qt.Query(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}))
}

func TestKDTree_WithinRadius(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	pts := make([]geom.Point, 400)
	for i := range pts {
		pts[i] = geom.Pt(r.Float64()*50, r.Float64()*50)
	}
	// Duplicate coordinates exercise the tie handling
	pts[10] = pts[20]
	tree := NewKDTree[int](pts, nil)
	tree.Remove(5)

	for k := 0; k < 50; k++ {
		c := geom.Pt(r.Float64()*50, r.Float64()*50)
		rad := r.Float64() * 8

		var want []int
		for i, p := range pts {
			if i != 5 && p.Distance(c) <= rad {
				want = append(want, i)
			}
		}
		var got []int
		for _, it := range tree.WithinRadius(c, rad) {
			got = append(got, it.ID)
		}
		assert.Equal(t, want, got)
	}

	found := tree.WithinRadius(pts[20], 0)
	require.Len(t, found, 2)
	assert.Equal(t, 10, found[0].ID)
}

func TestKDTree_NearestAndRange(t *testing.T) {
	pts := []geom.Point{geom.Pt(0, 0), geom.Pt(5, 5), geom.Pt(10, 0), geom.Pt(4, 4)}
	tree := NewKDTree(pts, []string{"a", "b", "c", "d"})

	it, d, ok := tree.Nearest(geom.Pt(4.4, 4.4), 10)
	require.True(t, ok)
	assert.Equal(t, "d", it.Value)
	assert.InDelta(t, 0.5657, d, 1e-3)

	_, _, ok = tree.Nearest(geom.Pt(100, 100), 1)
	assert.False(t, ok)

	id := tree.Insert(geom.Pt(9, 1), "e")
	inRange := tree.Range(orb.Bound{Min: orb.Point{8, -1}, Max: orb.Point{11, 2}})
	require.Len(t, inRange, 2)
	assert.Equal(t, "c", inRange[0].Value)
	assert.Equal(t, id, inRange[1].ID)
	assert.Equal(t, 5, tree.Len())
}
