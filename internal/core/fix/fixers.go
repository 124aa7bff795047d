package fix

import (
	"context"
	"errors"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/store"
)

// circleSides is half the number of chords a straightened circle gets.
const circleSides = 8

// piece is a live entity standing for a handle named by a result.
type piece struct {
	handle model.EntityHandle
	curve  geom.Curve
}

// pieces reads everything h currently resolves to. Handles erased behind
// the lineage's back are dropped.
func pieces(ctx context.Context, m *store.Mutator, env Env, h model.EntityHandle) ([]piece, error) {
	var out []piece
	for _, p := range env.resolve(h) {
		c, err := m.Read(ctx, p)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, piece{handle: p, curve: c})
	}
	return out, nil
}

// SplitAtPoints cuts every source wherever it passes through a crossing
// point or an overlap end. Sources already cut by an earlier fix are
// handled piece by piece.
func SplitAtPoints(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	payload, ok := r.Payload.(model.CrossingPayload)
	if !ok {
		return Outcome{}, payloadError(r)
	}
	pts := payload.SplitPoints()
	var out Outcome
	live := 0
	for _, h := range r.SourceIDs {
		ps, err := pieces(ctx, m, env, h)
		if err != nil {
			return Outcome{}, err
		}
		for _, p := range ps {
			live++
			cut, err := m.Split(ctx, p.handle, pts)
			if err != nil {
				return Outcome{}, err
			}
			if len(cut) > 1 {
				out.replace(p.handle, cut)
			}
		}
	}
	if live == 0 {
		return Outcome{}, stale(r)
	}
	return out, nil
}

// eraseAll erases every live piece of hs and reports how many it erased.
func eraseAll(ctx context.Context, m *store.Mutator, env Env, out *Outcome, hs []model.EntityHandle) (int, error) {
	n := 0
	for _, h := range hs {
		for _, p := range env.resolve(h) {
			err := m.Erase(ctx, p)
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			if err != nil {
				return n, err
			}
			out.erase(p)
			n++
		}
	}
	return n, nil
}

// EraseSources erases every source of the result.
func EraseSources(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	var out Outcome
	n, err := eraseAll(ctx, m, env, &out, r.SourceIDs)
	if err != nil {
		return Outcome{}, err
	}
	if n == 0 {
		return Outcome{}, stale(r)
	}
	return out, nil
}

// EraseDuplicates erases the duplicates of a group and keeps its keeper.
// Nothing is erased once the keeper itself is gone.
func EraseDuplicates(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	payload, ok := r.Payload.(model.DuplicatePayload)
	if !ok {
		return Outcome{}, payloadError(r)
	}
	keeper, err := pieces(ctx, m, env, payload.Keeper)
	if err != nil {
		return Outcome{}, err
	}
	if len(keeper) == 0 {
		return Outcome{}, stale(r)
	}
	var out Outcome
	n, err := eraseAll(ctx, m, env, &out, payload.Duplicates)
	if err != nil {
		return Outcome{}, err
	}
	if n == 0 {
		return Outcome{}, stale(r)
	}
	return out, nil
}

// EraseChain erases a dangling chain. A curve the chain only partly
// covers is cut at the junction and just its spur piece is erased.
func EraseChain(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	payload, ok := r.Payload.(model.DanglingPayload)
	if !ok {
		return Outcome{}, payloadError(r)
	}
	var whole []model.EntityHandle
	for _, h := range payload.Path {
		if h != payload.Trim {
			whole = append(whole, h)
		}
	}
	var out Outcome
	n, err := eraseAll(ctx, m, env, &out, whole)
	if err != nil {
		return Outcome{}, err
	}
	if payload.Trim != "" && payload.Junction != nil {
		trimmed, err := trimSpur(ctx, m, env, &out, payload.Trim, payload.TrimFrom, *payload.Junction)
		if err != nil {
			return Outcome{}, err
		}
		n += trimmed
	}
	if n == 0 {
		return Outcome{}, stale(r)
	}
	return out, nil
}

// trimSpur cuts h at junction and erases the piece running from `from`
// to junction. It reports how many pieces it erased.
func trimSpur(ctx context.Context, m *store.Mutator, env Env, out *Outcome, h model.EntityHandle, from, junction geom.Point) (int, error) {
	ps, err := pieces(ctx, m, env, h)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range ps {
		cut, err := m.Split(ctx, p.handle, []geom.Point{junction})
		if err != nil {
			return n, err
		}
		if len(cut) > 1 {
			out.replace(p.handle, cut)
		}
		for _, c := range cut {
			curve, err := m.Read(ctx, c)
			if err != nil {
				return n, err
			}
			if !spans(curve, from, junction, env.Tol) {
				continue
			}
			if err := m.Erase(ctx, c); err != nil {
				return n, err
			}
			out.erase(c)
			n++
		}
	}
	return n, nil
}

// spans reports whether the open curve c runs between a and b.
func spans(c geom.Curve, a, b geom.Point, tol geom.Tolerance) bool {
	if c.Closed || len(c.Vertices) < 2 {
		return false
	}
	s, e := c.Start(), c.End()
	return (s.Equal(a, tol) && e.Equal(b, tol)) || (s.Equal(b, tol) && e.Equal(a, tol))
}

// endAt finds the open piece with an end at p.
func endAt(ps []piece, p geom.Point, tol geom.Tolerance) (piece, geom.CurveEnd, bool) {
	for _, pc := range ps {
		c := pc.curve
		if c.Closed || len(c.Vertices) < 2 {
			continue
		}
		if c.Start().Equal(p, tol) {
			return pc, geom.AtStart, true
		}
		if c.End().Equal(p, tol) {
			return pc, geom.AtEnd, true
		}
	}
	return piece{}, 0, false
}

// Extend lengthens the source's free end onto the target and, when asked
// to, splits the target there.
func Extend(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	payload, ok := r.Payload.(model.UndershootPayload)
	if !ok {
		return Outcome{}, payloadError(r)
	}
	src, err := pieces(ctx, m, env, payload.Source)
	if err != nil {
		return Outcome{}, err
	}
	pc, end, ok := endAt(src, payload.From, env.Tol)
	if !ok {
		return Outcome{}, stale(r)
	}
	targets := env.resolve(payload.Target)
	if len(targets) == 0 {
		return Outcome{}, stale(r)
	}

	ext, err := pc.curve.ExtendedTo(end, payload.To, env.Tol)
	if err != nil {
		return Outcome{}, err
	}
	if err := m.Replace(ctx, pc.handle, ext); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	out.modify(pc.handle)

	if !env.Options.SplitTargetOnExtend {
		return out, nil
	}
	for _, t := range targets {
		if t == pc.handle {
			continue
		}
		cut, err := m.Split(ctx, t, []geom.Point{payload.To})
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return Outcome{}, err
		}
		if len(cut) > 1 {
			out.replace(t, cut)
		}
	}
	return out, nil
}

// Snap moves every clustered end onto the representative point.
func Snap(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	payload, ok := r.Payload.(model.ClusterPayload)
	if !ok {
		return Outcome{}, payloadError(r)
	}
	var out Outcome
	live := 0
	for _, mem := range payload.Members {
		ps, err := pieces(ctx, m, env, mem.Handle)
		if err != nil {
			return Outcome{}, err
		}
		pc, end, ok := endAt(ps, mem.Point, env.Tol)
		if !ok {
			continue
		}
		live++
		if mem.Point.Equal(payload.Representative, env.Tol) {
			continue
		}
		if err := m.SetVertex(ctx, pc.handle, end.VertexIndex(pc.curve), payload.Representative); err != nil {
			return Outcome{}, err
		}
		out.modify(pc.handle)
	}
	if live == 0 {
		return Outcome{}, stale(r)
	}
	return out, nil
}

// single resolves h to exactly one live piece. A split entity no longer
// matches a whole-entity defect.
func single(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (piece, error) {
	if len(r.SourceIDs) == 0 {
		return piece{}, stale(r)
	}
	ps, err := pieces(ctx, m, env, r.SourceIDs[0])
	if err != nil {
		return piece{}, err
	}
	if len(ps) != 1 {
		return piece{}, stale(r)
	}
	return ps[0], nil
}

// Close sets the closed flag. A last vertex lying near the first is
// dropped so the closing segment replaces the tiny gap.
func Close(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	pc, err := single(ctx, m, env, r)
	if err != nil {
		return Outcome{}, err
	}
	c := pc.curve.Clone()
	if c.Closed {
		return Outcome{}, nil
	}
	if n := len(c.Vertices); n >= 4 {
		c.Vertices = c.Vertices[:n-1]
	}
	c.Closed = true
	if c.Kind == geom.KindLine {
		c.Kind = geom.KindPolyline
	}
	if err := m.Replace(ctx, pc.handle, c); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	out.modify(pc.handle)
	return out, nil
}

// Reverse flips the vertex order of counter-clockwise polygons.
func Reverse(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	pc, err := single(ctx, m, env, r)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	if geom.SignedArea(pc.curve) <= 0 {
		return out, nil
	}
	if err := m.Reverse(ctx, pc.handle); err != nil {
		return Outcome{}, err
	}
	out.modify(pc.handle)
	return out, nil
}

// vertexIndex finds the vertex a payload named, trusting the recorded
// index while the geometry still agrees with it.
func vertexIndex(c geom.Curve, index int, p geom.Point, tol geom.Tolerance, taken map[int]bool) int {
	if index >= 0 && index < len(c.Vertices) && !taken[index] && c.Vertices[index].Point.Equal(p, tol) {
		return index
	}
	for i, v := range c.Vertices {
		if !taken[i] && v.Point.Equal(p, tol) {
			return i
		}
	}
	return -1
}

// RemoveVertices drops the duplicate vertices a result lists.
func RemoveVertices(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	payload, ok := r.Payload.(model.VertexRemovalPayload)
	if !ok {
		return Outcome{}, payloadError(r)
	}
	ps, err := pieces(ctx, m, env, r.SourceIDs[0])
	if err != nil {
		return Outcome{}, err
	}
	if len(ps) == 0 {
		return Outcome{}, stale(r)
	}
	var out Outcome
	for _, pc := range ps {
		taken := make(map[int]bool)
		var drop []int
		for _, rm := range payload.Removals {
			keep := vertexIndex(pc.curve, rm.KeepIndex, rm.KeepPoint, env.Tol, taken)
			if keep < 0 {
				continue
			}
			skip := map[int]bool{keep: true}
			for k := range taken {
				skip[k] = true
			}
			if i := vertexIndex(pc.curve, rm.Index, rm.Point, env.Tol, skip); i >= 0 {
				taken[i] = true
				drop = append(drop, i)
			}
		}
		if len(drop) == 0 {
			continue
		}
		if err := m.RemoveVertices(ctx, pc.handle, drop); err != nil {
			return Outcome{}, err
		}
		out.modify(pc.handle)
	}
	return out, nil
}

// MoveVertices relocates the vertices a result lists. When the result
// names a target curve it must still exist.
func MoveVertices(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	payload, ok := r.Payload.(model.VertexMovePayload)
	if !ok {
		return Outcome{}, payloadError(r)
	}
	if payload.Target != "" && len(env.resolve(payload.Target)) == 0 {
		return Outcome{}, stale(r)
	}
	ps, err := pieces(ctx, m, env, r.SourceIDs[0])
	if err != nil {
		return Outcome{}, err
	}
	if len(ps) == 0 {
		return Outcome{}, stale(r)
	}
	var out Outcome
	for _, pc := range ps {
		c := pc.curve.Clone()
		moved := false
		taken := make(map[int]bool)
		for _, mv := range payload.Moves {
			i := vertexIndex(c, mv.Index, mv.From, env.Tol, taken)
			if i < 0 {
				continue
			}
			taken[i] = true
			c = c.WithVertexMoved(i, mv.To)
			moved = true
		}
		if !moved {
			continue
		}
		if err := m.Replace(ctx, pc.handle, c); err != nil {
			return Outcome{}, err
		}
		out.modify(pc.handle)
	}
	return out, nil
}

// Straighten replaces arcs by chords, or erases whole arc entities when
// the options say so. Circles become polygons since their chord is
// degenerate.
func Straighten(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	ps, err := pieces(ctx, m, env, r.SourceIDs[0])
	if err != nil {
		return Outcome{}, err
	}
	if len(ps) == 0 {
		return Outcome{}, stale(r)
	}
	var out Outcome
	for _, pc := range ps {
		c := pc.curve
		whole := c.Kind == geom.KindArc || c.Kind == geom.KindCircle
		if whole && env.Options.ArcMode == ArcErase {
			if err := m.Erase(ctx, pc.handle); err != nil {
				return Outcome{}, err
			}
			out.erase(pc.handle)
			continue
		}
		if !c.HasArcs() {
			continue
		}
		next := c.Straightened()
		if c.Kind == geom.KindCircle {
			next = geom.Polygon(c.Flatten(circleSides)...)
			next.Elevation, next.Layer = c.Elevation, c.Layer
		}
		if err := m.Replace(ctx, pc.handle, next); err != nil {
			return Outcome{}, err
		}
		out.modify(pc.handle)
	}
	return out, nil
}

// Flatten drops every source onto the z = 0 plane.
func Flatten(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	ps, err := pieces(ctx, m, env, r.SourceIDs[0])
	if err != nil {
		return Outcome{}, err
	}
	if len(ps) == 0 {
		return Outcome{}, stale(r)
	}
	var out Outcome
	for _, pc := range ps {
		if pc.curve.Elevation == 0 {
			continue
		}
		if err := m.SetElevation(ctx, pc.handle, 0); err != nil {
			return Outcome{}, err
		}
		out.modify(pc.handle)
	}
	return out, nil
}

// InsertVertices adds the missing junction vertices to the first source.
func InsertVertices(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error) {
	payload, ok := r.Payload.(model.VertexInsertPayload)
	if !ok {
		return Outcome{}, payloadError(r)
	}
	ps, err := pieces(ctx, m, env, r.SourceIDs[0])
	if err != nil {
		return Outcome{}, err
	}
	if len(ps) == 0 {
		return Outcome{}, stale(r)
	}
	var out Outcome
	for _, in := range payload.Inserts {
		for _, pc := range ps {
			done, err := m.InsertVertexAt(ctx, pc.handle, in.Point)
			if err != nil {
				return Outcome{}, err
			}
			if done {
				out.modify(pc.handle)
				break
			}
		}
	}
	return out, nil
}
