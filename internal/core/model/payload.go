package model

import (
	"fmt"
	"strings"

	"github.com/agenthands/topoclean/internal/core/geom"
)

// Payload is the action-specific detail of a CheckResult.
type Payload interface {
	Kind() string
	Describe() string
}

// CrossingPayload lists where two curves, or one curve with itself, cross
// or run along each other.
type CrossingPayload struct {
	Points   []geom.Point   `json:"points,omitempty"`
	Overlaps []geom.Segment `json:"overlaps,omitempty"`
	Self     bool           `json:"self"`
}

func (p CrossingPayload) Kind() string {
	if p.Self {
		return "self_intersection"
	}
	return "crossing"
}

func (p CrossingPayload) Describe() string {
	var parts []string
	for _, pt := range p.Points {
		parts = append(parts, pt.String())
	}
	for _, o := range p.Overlaps {
		parts = append(parts, fmt.Sprintf("overlap %s-%s", o.A, o.B))
	}
	what := "crossing"
	if p.Self {
		what = "self-intersection"
	}
	return fmt.Sprintf("%s at %s", what, strings.Join(parts, ", "))
}

// SplitPoints is every location the fix cuts at.
func (p CrossingPayload) SplitPoints() []geom.Point {
	out := append([]geom.Point(nil), p.Points...)
	for _, o := range p.Overlaps {
		out = append(out, o.A, o.B)
	}
	return out
}

type DuplicatePayload struct {
	Keeper     EntityHandle   `json:"keeper"`
	Duplicates []EntityHandle `json:"duplicates"`
}

func (DuplicatePayload) Kind() string { return "duplicate" }

func (p DuplicatePayload) Describe() string {
	return fmt.Sprintf("%d duplicate(s) of %s", len(p.Duplicates), p.Keeper)
}

// DanglingPayload is a chain walked from a free end. Junction is nil when
// the chain is isolated.
type DanglingPayload struct {
	Path     []EntityHandle `json:"path"`
	Length   float64        `json:"length"`
	FreeEnd  geom.Point     `json:"free_end"`
	Junction *geom.Point    `json:"junction,omitempty"`
	// Trim is set when the chain ends at an interior vertex of its last
	// curve. Only the stretch of Trim between TrimFrom and Junction
	// belongs to the chain.
	Trim     EntityHandle `json:"trim,omitempty"`
	TrimFrom geom.Point   `json:"trim_from,omitempty"`
}

func (DanglingPayload) Kind() string { return "dangling" }

func (p DanglingPayload) Describe() string {
	return fmt.Sprintf("dangling chain of %d curve(s), length %g, free end at %s", len(p.Path), p.Length, p.FreeEnd)
}

// EndpointPayload is a single free end.
type EndpointPayload struct {
	Handle EntityHandle  `json:"handle"`
	End    geom.CurveEnd `json:"end"`
	Point  geom.Point    `json:"point"`
}

func (EndpointPayload) Kind() string { return "free_end" }

func (p EndpointPayload) Describe() string {
	return fmt.Sprintf("free %s of %s at %s", p.End, p.Handle, p.Point)
}

// ExtendDirection is relative to the source curve's parametrization.
type ExtendDirection string

const (
	Forward  ExtendDirection = "forward"
	Backward ExtendDirection = "backward"
)

type UndershootPayload struct {
	Source    EntityHandle    `json:"source"`
	End       geom.CurveEnd   `json:"end"`
	From      geom.Point      `json:"from"`
	To        geom.Point      `json:"to"`
	Target    EntityHandle    `json:"target"`
	Direction ExtendDirection `json:"direction"`
	Gap       float64         `json:"gap"`
}

func (UndershootPayload) Kind() string { return "undershoot" }

func (p UndershootPayload) Describe() string {
	return fmt.Sprintf("extend %s %s by %g to %s on %s", p.Source, p.Direction, p.Gap, p.To, p.Target)
}

type ClusterMember struct {
	Handle EntityHandle  `json:"handle"`
	End    geom.CurveEnd `json:"end"`
	Point  geom.Point    `json:"point"`
}

type ClusterPayload struct {
	Representative geom.Point      `json:"representative"`
	Members        []ClusterMember `json:"members"`
}

func (ClusterPayload) Kind() string { return "cluster" }

func (p ClusterPayload) Describe() string {
	return fmt.Sprintf("%d end(s) clustered around %s", len(p.Members), p.Representative)
}

// VertexRemoval drops Index, which lies close to the kept vertex.
type VertexRemoval struct {
	Index     int        `json:"index"`
	Point     geom.Point `json:"point"`
	KeepIndex int        `json:"keep_index"`
	KeepPoint geom.Point `json:"keep_point"`
}

type VertexRemovalPayload struct {
	Removals []VertexRemoval `json:"removals"`
}

func (VertexRemovalPayload) Kind() string { return "duplicate_vertex" }

func (p VertexRemovalPayload) Describe() string {
	return fmt.Sprintf("%d duplicate vertex(es)", len(p.Removals))
}

type VertexMove struct {
	Index    int        `json:"index"`
	From     geom.Point `json:"from"`
	To       geom.Point `json:"to"`
	Distance float64    `json:"distance"`
}

// VertexMovePayload relocates vertices of the first source. Target is set
// when the vertices move onto another curve.
type VertexMovePayload struct {
	Moves  []VertexMove `json:"moves"`
	Target EntityHandle `json:"target,omitempty"`
}

func (VertexMovePayload) Kind() string { return "vertex_move" }

func (p VertexMovePayload) Describe() string {
	var worst float64
	for _, m := range p.Moves {
		if m.Distance > worst {
			worst = m.Distance
		}
	}
	if p.Target != "" {
		return fmt.Sprintf("%d vertex(es) within %g of %s", len(p.Moves), worst, p.Target)
	}
	return fmt.Sprintf("%d vertex(es) off line by up to %g", len(p.Moves), worst)
}

type VertexInsert struct {
	Point  geom.Point   `json:"point"`
	Source EntityHandle `json:"source"`
}

// VertexInsertPayload lists junction points the first source passes
// through without a vertex.
type VertexInsertPayload struct {
	Inserts []VertexInsert `json:"inserts"`
}

func (VertexInsertPayload) Kind() string { return "missing_vertex" }

func (p VertexInsertPayload) Describe() string {
	pts := make([]string, len(p.Inserts))
	for i, in := range p.Inserts {
		pts[i] = in.Point.String()
	}
	return "missing vertex at " + strings.Join(pts, ", ")
}

// MeasurePayload reports a scalar that crossed a limit.
type MeasurePayload struct {
	Measure string     `json:"measure"`
	Value   float64    `json:"value"`
	Limit   float64    `json:"limit"`
	At      geom.Point `json:"at"`
}

func (MeasurePayload) Kind() string { return "measure" }

func (p MeasurePayload) Describe() string {
	return fmt.Sprintf("%s %g (limit %g) at %s", p.Measure, p.Value, p.Limit, p.At)
}

// PolygonPairPayload relates the two sources of a result.
type PolygonPairPayload struct {
	Relation string       `json:"relation"`
	Area     float64      `json:"area,omitempty"`
	Points   []geom.Point `json:"points,omitempty"`
}

func (PolygonPairPayload) Kind() string { return "polygon_pair" }

func (p PolygonPairPayload) Describe() string {
	if p.Area > 0 {
		return fmt.Sprintf("%s, area %g", p.Relation, p.Area)
	}
	if len(p.Points) > 0 {
		return fmt.Sprintf("%s at %d point(s)", p.Relation, len(p.Points))
	}
	return p.Relation
}

type Corner struct {
	Index   int        `json:"index"`
	Point   geom.Point `json:"point"`
	Degrees float64    `json:"degrees"`
}

type CornerPayload struct {
	Corners []Corner `json:"corners"`
}

func (CornerPayload) Kind() string { return "sharp_corner" }

func (p CornerPayload) Describe() string {
	parts := make([]string, len(p.Corners))
	for i, c := range p.Corners {
		parts[i] = fmt.Sprintf("%.2f° at %s", c.Degrees, c.Point)
	}
	return "sharp corner " + strings.Join(parts, ", ")
}

// ArcPayload lists curved segments. Entity is set for arc and circle
// entities, which have no straight form.
type ArcPayload struct {
	Segments []int `json:"segments"`
	Entity   bool  `json:"entity"`
}

func (ArcPayload) Kind() string { return "arc" }

func (p ArcPayload) Describe() string {
	if p.Entity {
		return "arc entity"
	}
	return fmt.Sprintf("%d arc segment(s)", len(p.Segments))
}
