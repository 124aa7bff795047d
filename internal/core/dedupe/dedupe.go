package dedupe

import (
	"context"
	"fmt"
	"sort"

	"github.com/agenthands/topoclean/internal/core/community"
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/spatial"
	"github.com/paulmach/orb"
)

// samplesPerSegment is how many interior points of each segment are
// tested besides its vertices.
const samplesPerSegment = 3

// Deduplicator finds curves that lie entirely on another curve.
type Deduplicator struct {
	Tol geom.Tolerance
	// Distance is how far a point may stray from the other curve.
	Distance float64
	Grouper  community.Detector
}

func NewDeduplicator(tol geom.Tolerance, distance float64) *Deduplicator {
	return &Deduplicator{
		Tol:      tol,
		Distance: distance,
		Grouper:  community.NewComponentDetector(),
	}
}

// ResolveDuplicates returns one pair per duplicate relation. When two
// curves cover each other the earlier one in entities is the original;
// when only one is covered, the covering curve is the original.
// Zero-length curves are left to the zero-length check.
func (d *Deduplicator) ResolveDuplicates(ctx context.Context, entities []model.Entity) ([]model.DuplicatePair, error) {
	var bounds []orb.Bound
	extent := orb.Bound{}
	usable := make([]bool, len(entities))
	for i, e := range entities {
		b := spatial.Pad(e.Geometry.Bound(), d.Distance)
		bounds = append(bounds, b)
		if e.Geometry.NumSegments() == 0 || e.Geometry.Length() <= d.Tol.EqualPoint {
			continue
		}
		usable[i] = true
		if extent.IsZero() {
			extent = b
		} else {
			extent = extent.Union(b)
		}
	}

	tree := spatial.NewQuadTree[int](extent)
	for i := range entities {
		if usable[i] {
			tree.Insert(i, bounds[i])
		}
	}

	var pairs []model.DuplicatePair
	for i := range entities {
		if err := ctx.Err(); err != nil {
			return pairs, fmt.Errorf("failed to resolve duplicates: %w", err)
		}
		if !usable[i] {
			continue
		}
		cands := tree.Query(bounds[i])
		sort.Ints(cands)
		for _, j := range cands {
			if j <= i {
				continue
			}
			a, b := entities[i], entities[j]
			aOnB := d.LiesOn(a.Geometry, b.Geometry)
			bOnA := d.LiesOn(b.Geometry, a.Geometry)
			switch {
			case aOnB && bOnA, bOnA:
				pairs = append(pairs, model.DuplicatePair{OriginalHandle: a.Handle, DuplicateHandle: b.Handle})
			case aOnB:
				pairs = append(pairs, model.DuplicatePair{OriginalHandle: b.Handle, DuplicateHandle: a.Handle})
			}
		}
	}
	return pairs, nil
}

// LiesOn reports whether every vertex of a, and sample points along each of
// its segments, are within Distance of b.
func (d *Deduplicator) LiesOn(a, b geom.Curve) bool {
	if len(a.Vertices) == 0 || b.NumSegments() == 0 {
		return false
	}
	if !spatial.Pad(b.Bound(), d.Distance).Intersects(a.Bound()) {
		return false
	}
	near := func(p geom.Point) bool {
		_, dist := b.Locate(p)
		return dist <= d.Distance
	}
	for _, v := range a.Vertices {
		if !near(v.Point) {
			return false
		}
	}
	for _, s := range a.Segments() {
		for k := 1; k <= samplesPerSegment; k++ {
			if !near(s.PointAt(float64(k) / (samplesPerSegment + 1))) {
				return false
			}
		}
	}
	return true
}

// Groups joins overlapping pairs. The keeper is the first member in
// entities order that is not itself a duplicate; only members reported as
// duplicates are listed for erasure, each once.
func (d *Deduplicator) Groups(entities []model.Entity, pairs []model.DuplicatePair) []model.DuplicateGroup {
	index := make(map[model.EntityHandle]int, len(entities))
	for i, e := range entities {
		index[e.Handle] = i
	}
	dup := make(map[int]bool)
	var links []community.Link
	for _, p := range pairs {
		a, okA := index[p.OriginalHandle]
		b, okB := index[p.DuplicateHandle]
		if !okA || !okB {
			continue
		}
		links = append(links, community.Link{A: a, B: b})
		dup[b] = true
	}

	var groups []model.DuplicateGroup
	for _, members := range d.Grouper.Detect(len(entities), links) {
		keeper := -1
		for _, m := range members {
			if !dup[m] {
				keeper = m
				break
			}
		}
		if keeper < 0 {
			keeper = members[0]
		}
		g := model.DuplicateGroup{Keeper: entities[keeper].Handle}
		for _, m := range members {
			if m != keeper && dup[m] {
				g.Duplicates = append(g.Duplicates, entities[m].Handle)
			}
		}
		if len(g.Duplicates) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}
