package detect

import (
	"context"
	"math"

	"github.com/agenthands/topoclean/internal/core/dedupe"
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
)

// Duplicates reports groups of curves lying on one another. Each group is
// one result whose first source is the keeper.
func Duplicates(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.DeleteDuplicates, p)
	es := r.usable(entities)
	d := dedupe.NewDeduplicator(p.Tol, math.Max(p.Limit, p.Tol.EqualPoint))

	if !r.step() {
		return r.outcome()
	}
	pairs, err := d.ResolveDuplicates(context.Background(), es)
	if err != nil {
		r.p.logger().Warn("duplicate search stopped", "error", err)
		r.out.Incomplete = true
	}
	for _, g := range d.Groups(es, pairs) {
		r.add(model.DuplicatePayload{Keeper: g.Keeper, Duplicates: g.Duplicates}, append([]model.EntityHandle{g.Keeper}, g.Duplicates...)...)
	}
	return r.outcome()
}

// DuplicatePolygons reports closed curves with the same vertex ring, in
// either direction and from any starting vertex.
func DuplicatePolygons(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.DuplicatePolygon, p)
	es := closedOnly(r.usable(entities))
	tree := entityIndex(es, p.Limit)
	limit := math.Max(p.Limit, p.Tol.EqualPoint)

	var pairs []model.DuplicatePair
	for i := range es {
		if !r.step() {
			break
		}
		for _, j := range candidates(tree, i, es[i].Geometry.Bound()) {
			if sameRing(es[i].Geometry, es[j].Geometry, limit) {
				pairs = append(pairs, model.DuplicatePair{OriginalHandle: es[i].Handle, DuplicateHandle: es[j].Handle})
			}
		}
	}
	d := dedupe.NewDeduplicator(p.Tol, limit)
	for _, g := range d.Groups(es, pairs) {
		r.add(model.DuplicatePayload{Keeper: g.Keeper, Duplicates: g.Duplicates}, append([]model.EntityHandle{g.Keeper}, g.Duplicates...)...)
	}
	return r.outcome()
}

// bulgeEpsilon bounds the difference between two bulges describing the
// same arc.
const bulgeEpsilon = 1e-6

func sameRing(a, b geom.Curve, limit float64) bool {
	if len(a.Vertices) != len(b.Vertices) {
		return false
	}
	for _, cand := range []geom.Curve{b, b.Reversed()} {
		for k := range cand.Vertices {
			if ringMatches(a, cand, k, limit) {
				return true
			}
		}
	}
	return false
}

func ringMatches(a, b geom.Curve, shift int, limit float64) bool {
	n := len(a.Vertices)
	for i := 0; i < n; i++ {
		va, vb := a.Vertices[i], b.Vertices[(i+shift)%n]
		if va.Point.Distance(vb.Point) > limit || math.Abs(va.Bulge-vb.Bulge) > bulgeEpsilon {
			return false
		}
	}
	return true
}
