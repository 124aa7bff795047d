package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/driver"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MemgraphStore persists curves as :Curve nodes of one drawing (GroupID).
// Erased curves are flagged rather than deleted so REPLACED_BY lineage
// stays queryable.
type MemgraphStore struct {
	Driver    driver.GraphDriver
	GroupID   string
	NewHandle func() string
	Now       func() time.Time
}

func NewMemgraphStore(d driver.GraphDriver, groupID string) *MemgraphStore {
	return &MemgraphStore{
		Driver:    d,
		GroupID:   groupID,
		NewHandle: func() string { return uuid.New().String() },
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemgraphStore) ReadGeometry(ctx context.Context, h model.EntityHandle) (geom.Curve, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetCurveQuery, map[string]interface{}{
		"uuid":     string(h),
		"group_id": s.GroupID,
	})
	if err != nil {
		return geom.Curve{}, fmt.Errorf("failed to read curve %s: %w", h, err)
	}
	if len(res.Records) == 0 {
		return geom.Curve{}, fmt.Errorf("%s: %w", h, model.ErrNotFound)
	}
	return decodeCurve(res.Records[0])
}

func (s *MemgraphStore) Handles(ctx context.Context) ([]model.EntityHandle, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ListCurveHandlesQuery, map[string]interface{}{
		"group_id": s.GroupID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list curves: %w", err)
	}
	out := make([]model.EntityHandle, 0, len(res.Records))
	for _, rec := range res.Records {
		id, _ := rec.Get("uuid")
		if str, ok := id.(string); ok {
			out = append(out, model.EntityHandle(str))
		}
	}
	return out, nil
}

// Add stores c under a fresh handle outside any batch.
func (s *MemgraphStore) Add(ctx context.Context, c geom.Curve) (model.EntityHandle, error) {
	h := model.EntityHandle(s.NewHandle())
	return h, s.AddWithHandle(ctx, h, c)
}

func (s *MemgraphStore) AddWithHandle(ctx context.Context, h model.EntityHandle, c geom.Curve) error {
	seq, err := s.nextSeq(ctx, func(q string, p map[string]interface{}) ([]*neo4j.Record, error) {
		res, err := s.Driver.ExecuteQuery(ctx, q, p)
		return res.Records, err
	})
	if err != nil {
		return err
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveCurveQuery, s.curveParams(h, seq, c)); err != nil {
		return fmt.Errorf("failed to save curve %s: %w", h, err)
	}
	return nil
}

// Replacements lists the curves h was replaced by.
func (s *MemgraphStore) Replacements(ctx context.Context, h model.EntityHandle) ([]model.EntityHandle, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetReplacementsQuery, map[string]interface{}{"uuid": string(h)})
	if err != nil {
		return nil, fmt.Errorf("failed to read replacements of %s: %w", h, err)
	}
	var out []model.EntityHandle
	for _, rec := range res.Records {
		id, _ := rec.Get("uuid")
		if str, ok := id.(string); ok {
			out = append(out, model.EntityHandle(str))
		}
	}
	return out, nil
}

// Clear removes the whole drawing, lineage included.
func (s *MemgraphStore) Clear(ctx context.Context) error {
	if _, err := s.Driver.ExecuteQuery(ctx, driver.ClearDrawingQuery, map[string]interface{}{"group_id": s.GroupID}); err != nil {
		return fmt.Errorf("failed to clear drawing %s: %w", s.GroupID, err)
	}
	return nil
}

func (s *MemgraphStore) BeginBatch(ctx context.Context) (Batch, error) {
	tx, err := s.Driver.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &memgraphBatch{store: s, tx: tx}, nil
}

type runFunc func(query string, params map[string]interface{}) ([]*neo4j.Record, error)

func (s *MemgraphStore) nextSeq(ctx context.Context, run runFunc) (int64, error) {
	recs, err := run(driver.NextCurveSeqQuery, map[string]interface{}{"group_id": s.GroupID})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	v, _ := recs[0].Get("seq")
	n, _ := v.(int64)
	return n, nil
}

func (s *MemgraphStore) curveParams(h model.EntityHandle, seq int64, c geom.Curve) map[string]interface{} {
	xs := make([]float64, len(c.Vertices))
	ys := make([]float64, len(c.Vertices))
	bulges := make([]float64, len(c.Vertices))
	for i, v := range c.Vertices {
		xs[i], ys[i], bulges[i] = v.Point.X, v.Point.Y, v.Bulge
	}
	return map[string]interface{}{
		"uuid":       string(h),
		"group_id":   s.GroupID,
		"seq":        seq,
		"kind":       string(c.Kind),
		"closed":     c.Closed,
		"elevation":  c.Elevation,
		"layer":      c.Layer,
		"xs":         xs,
		"ys":         ys,
		"bulges":     bulges,
		"updated_at": s.Now().Format(time.RFC3339Nano),
	}
}

func decodeCurve(rec *neo4j.Record) (geom.Curve, error) {
	var c geom.Curve
	kind, _ := rec.Get("kind")
	c.Kind, _ = kindOf(kind)
	closed, _ := rec.Get("closed")
	c.Closed, _ = closed.(bool)
	elev, _ := rec.Get("elevation")
	c.Elevation, _ = toFloat(elev)
	layer, _ := rec.Get("layer")
	c.Layer, _ = layer.(string)

	xsRaw, _ := rec.Get("xs")
	ysRaw, _ := rec.Get("ys")
	bRaw, _ := rec.Get("bulges")
	xs, err := toFloats(xsRaw)
	if err != nil {
		return c, fmt.Errorf("failed to decode xs: %w", err)
	}
	ys, err := toFloats(ysRaw)
	if err != nil {
		return c, fmt.Errorf("failed to decode ys: %w", err)
	}
	bulges, err := toFloats(bRaw)
	if err != nil {
		return c, fmt.Errorf("failed to decode bulges: %w", err)
	}
	if len(xs) != len(ys) {
		return c, fmt.Errorf("coordinate count mismatch %d/%d: %w", len(xs), len(ys), model.ErrGeometryDegenerate)
	}
	c.Vertices = make([]geom.Vertex, len(xs))
	for i := range xs {
		c.Vertices[i].Point = geom.Pt(xs[i], ys[i])
		if i < len(bulges) {
			c.Vertices[i].Bulge = bulges[i]
		}
	}
	return c, nil
}

func kindOf(v any) (geom.Kind, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return geom.KindPolyline, false
	}
	return geom.Kind(s), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func toFloats(v any) ([]float64, error) {
	switch vs := v.(type) {
	case nil:
		return nil, nil
	case []float64:
		return vs, nil
	case []any:
		out := make([]float64, len(vs))
		for i, x := range vs {
			f, ok := toFloat(x)
			if !ok {
				return nil, fmt.Errorf("element %d has type %T", i, x)
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected list type %T", v)
}

type memgraphBatch struct {
	store *MemgraphStore
	tx    driver.Tx
}

func (b *memgraphBatch) run(ctx context.Context) runFunc {
	return func(q string, p map[string]interface{}) ([]*neo4j.Record, error) {
		return b.tx.Run(ctx, q, p)
	}
}

func (b *memgraphBatch) Read(ctx context.Context, h model.EntityHandle) (geom.Curve, error) {
	recs, err := b.tx.Run(ctx, driver.GetCurveQuery, map[string]interface{}{
		"uuid":     string(h),
		"group_id": b.store.GroupID,
	})
	if err != nil {
		return geom.Curve{}, fmt.Errorf("failed to read curve %s: %w", h, err)
	}
	if len(recs) == 0 {
		return geom.Curve{}, fmt.Errorf("%s: %w", h, model.ErrNotFound)
	}
	return decodeCurve(recs[0])
}

func (b *memgraphBatch) Write(ctx context.Context, h model.EntityHandle, c geom.Curve) error {
	if _, err := b.Read(ctx, h); err != nil {
		return err
	}
	// seq is kept by coalesce in the query
	if _, err := b.tx.Run(ctx, driver.SaveCurveQuery, b.store.curveParams(h, 0, c)); err != nil {
		return fmt.Errorf("failed to save curve %s: %w", h, err)
	}
	return nil
}

func (b *memgraphBatch) Create(ctx context.Context, c geom.Curve) (model.EntityHandle, error) {
	h := model.EntityHandle(b.store.NewHandle())
	seq, err := b.store.nextSeq(ctx, b.run(ctx))
	if err != nil {
		return "", err
	}
	if _, err := b.tx.Run(ctx, driver.SaveCurveQuery, b.store.curveParams(h, seq, c)); err != nil {
		return "", fmt.Errorf("failed to save curve %s: %w", h, err)
	}
	return h, nil
}

func (b *memgraphBatch) Erase(ctx context.Context, h model.EntityHandle) error {
	recs, err := b.tx.Run(ctx, driver.EraseCurveQuery, map[string]interface{}{
		"uuid":      string(h),
		"group_id":  b.store.GroupID,
		"erased_at": b.store.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to erase curve %s: %w", h, err)
	}
	if len(recs) == 0 {
		return fmt.Errorf("%s: %w", h, model.ErrNotFound)
	}
	return nil
}

func (b *memgraphBatch) RecordReplacement(ctx context.Context, edge model.ReplacementEdge) error {
	_, err := b.tx.Run(ctx, driver.SaveReplacementQuery, map[string]interface{}{
		"source_uuid": string(edge.Source),
		"target_uuid": string(edge.Target),
		"result_id":   edge.ResultID,
		"action":      string(edge.Action),
		"created_at":  edge.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to record replacement %s -> %s: %w", edge.Source, edge.Target, err)
	}
	return nil
}

func (b *memgraphBatch) Commit(ctx context.Context) error {
	return b.tx.Commit(ctx)
}

func (b *memgraphBatch) Rollback(ctx context.Context) error {
	return b.tx.Rollback(ctx)
}
