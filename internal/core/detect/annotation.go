package detect

import (
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
)

// AnnotationOverlaps reports pairs of annotation boxes sharing area.
func AnnotationOverlaps(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.AnnotationOverlap, p)
	var boxes []model.Entity
	for _, e := range entities {
		if e.Geometry.Kind != geom.KindAnnotation {
			continue
		}
		if len(e.Geometry.Vertices) < 3 {
			r.skip(e.Handle, "annotation box needs three vertices")
			continue
		}
		boxes = append(boxes, e)
	}
	tree := entityIndex(boxes, 0)
	grid := newClipGrid(p.Tol)
	for i, e := range boxes {
		if !r.step() {
			break
		}
		for _, j := range candidates(tree, i, e.Geometry.Bound()) {
			a := grid.intersectionArea(e.Geometry, boxes[j].Geometry)
			if a <= p.Tol.EqualPoint {
				continue
			}
			r.add(model.PolygonPairPayload{Relation: "annotations overlap", Area: a}, e.Handle, boxes[j].Handle)
		}
	}
	return r.outcome()
}
