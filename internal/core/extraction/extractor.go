// Package extraction traces the minimal faces of a cleaned planar graph.
package extraction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/planar"
)

type Extractor struct {
	Tol    geom.Tolerance
	Logger *slog.Logger
}

func NewExtractor(tol geom.Tolerance, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{Tol: tol, Logger: logger}
}

// Face is one traced loop. Curve is closed; bounded faces are returned
// clockwise.
type Face struct {
	Curve   geom.Curve           `json:"curve"`
	Handles []model.EntityHandle `json:"handles"`
	Area    float64              `json:"area"`
	// HalfEdges is the number of directed edges the walk used.
	HalfEdges int `json:"half_edges"`
}

// Faces is the result of one extraction.
type Faces struct {
	// Bounded are the minimal faces.
	Bounded []Face `json:"bounded"`
	// Outer are the boundaries of unbounded faces, one per connected
	// component, traced clockwise.
	Outer []Face `json:"outer"`
	// Unclosed lists entities with an edge that borders the same walk on
	// both sides: dangling spurs and bridges that close no face.
	Unclosed []model.EntityHandle `json:"unclosed"`
	// HalfEdges counts every directed edge traced, degenerate walks
	// included.
	HalfEdges int `json:"half_edges"`
}

// halfEdge is an edge directed away from node from.
type halfEdge struct {
	edge  *planar.Edge
	from  int
	angle float64
	// bend is the signed curvature leaving from, positive to the left.
	bend float64
}

func (h halfEdge) id() int {
	if h.from == h.edge.From {
		return 2 * h.edge.ID
	}
	return 2*h.edge.ID + 1
}

func (h halfEdge) to() int {
	return h.edge.Other(h.from)
}

// ExtractFaces builds a segment graph over entities and walks every
// directed edge once, always taking the smallest clockwise turn. Walks
// with positive area are minimal faces; negative ones trace the outside
// of a component; walks without area are dropped.
func (x *Extractor) ExtractFaces(ctx context.Context, entities []model.Entity) (Faces, error) {
	g := planar.Build(entities, x.Tol, planar.SegmentEdges)

	// outgoing half-edges per node, counter-clockwise by angle
	out := make([][]halfEdge, len(g.Nodes))
	for _, n := range g.Nodes {
		for _, a := range g.Neighbors(n) {
			e := a.Edge
			if e.Degenerate || e.From == e.To {
				continue
			}
			d := g.Direction(e, n.ID)
			angle := math.Atan2(d.Y, d.X)
			if angle <= -math.Pi+x.Tol.EqualVector {
				angle += 2 * math.Pi
			}
			out[n.ID] = append(out[n.ID], halfEdge{edge: e, from: n.ID, angle: angle, bend: curvature(g, e, n.ID)})
		}
		// Edges leaving along the same tangent separate by how they bend:
		// the one turning right lies clockwise of the other.
		sort.SliceStable(out[n.ID], func(i, j int) bool {
			a, b := out[n.ID][i], out[n.ID][j]
			if math.Abs(a.angle-b.angle) > x.Tol.EqualVector {
				return a.angle < b.angle
			}
			if a.bend != b.bend {
				return a.bend < b.bend
			}
			return a.id() < b.id()
		})
	}
	// position of each half-edge in its node's ring
	pos := make(map[int]int)
	for _, ring := range out {
		for i, h := range ring {
			pos[h.id()] = i
		}
	}

	// next is the half-edge leaving the arrival node just clockwise of
	// the way back.
	next := func(h halfEdge) halfEdge {
		v := h.to()
		ring := out[v]
		twin := halfEdge{edge: h.edge, from: v}
		i := pos[twin.id()]
		return ring[(i-1+len(ring))%len(ring)]
	}

	var res Faces
	visited := make(map[int]bool)
	walkOf := make(map[int]int)
	walk := 0
	for _, ring := range out {
		for _, start := range ring {
			if visited[start.id()] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("face tracing stopped: %w: %w", model.ErrCancelled, err)
			}
			var loop []halfEdge
			for h := start; !visited[h.id()]; h = next(h) {
				visited[h.id()] = true
				walkOf[h.id()] = walk
				loop = append(loop, h)
			}
			walk++
			res.HalfEdges += len(loop)
			face := x.face(g, loop)
			switch {
			case face.Area > x.Tol.EqualPoint:
				face.Curve = face.Curve.Reversed()
				res.Bounded = append(res.Bounded, face)
			case face.Area < -x.Tol.EqualPoint:
				face.Area = -face.Area
				res.Outer = append(res.Outer, face)
			default:
				x.Logger.Debug("degenerate walk dropped", "half_edges", len(loop))
			}
		}
	}

	var unclosed model.Selection
	for _, e := range g.Edges {
		if e.Degenerate || e.From == e.To {
			continue
		}
		if walkOf[2*e.ID] == walkOf[2*e.ID+1] {
			unclosed = unclosed.Union([]model.EntityHandle{e.Handle})
		}
	}
	res.Unclosed = unclosed
	x.Logger.Debug("faces traced", "bounded", len(res.Bounded), "outer", len(res.Outer), "unclosed", len(res.Unclosed))
	return res, nil
}

// curvature of e leaving node: 1/r on arcs, signed by turning direction.
func curvature(g *planar.Graph, e *planar.Edge, node int) float64 {
	if e.Segment < 0 {
		return 0
	}
	s := g.Entities[e.Entity].Geometry.Segment(e.Segment)
	a, ok := s.Arc()
	if !ok || a.Radius == 0 {
		return 0
	}
	k := 1 / a.Radius
	if s.Bulge < 0 {
		k = -k
	}
	if e.From != node {
		k = -k
	}
	return k
}

// face turns a walk into a closed curve. Area is signed as traced.
func (x *Extractor) face(g *planar.Graph, loop []halfEdge) Face {
	c := geom.Curve{Kind: geom.KindPolyline, Closed: true}
	var handles model.Selection
	for _, h := range loop {
		bulge := g.Entities[h.edge.Entity].Geometry.Segment(h.edge.Segment).Bulge
		if h.from != h.edge.From {
			bulge = -bulge
		}
		c.Vertices = append(c.Vertices, geom.Vertex{Point: g.Nodes[h.from].Point, Bulge: bulge})
		handles = handles.Union([]model.EntityHandle{h.edge.Handle})
	}
	return Face{Curve: c, Handles: handles, Area: geom.SignedArea(c), HalfEdges: len(loop)}
}
