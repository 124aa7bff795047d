package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
)

// Mutator implements the entity edits fixers need on top of a Batch.
// Every edit reads the current geometry through the batch first, so edits
// compose within one batch.
type Mutator struct {
	Batch Batch
	Tol   geom.Tolerance
}

func NewMutator(b Batch, tol geom.Tolerance) *Mutator {
	return &Mutator{Batch: b, Tol: tol}
}

func (m *Mutator) Read(ctx context.Context, h model.EntityHandle) (geom.Curve, error) {
	return m.Batch.Read(ctx, h)
}

func (m *Mutator) Create(ctx context.Context, c geom.Curve) (model.EntityHandle, error) {
	h, err := m.Batch.Create(ctx, c)
	if err != nil {
		return "", mutationFailed("create", "", err)
	}
	return h, nil
}

func (m *Mutator) Erase(ctx context.Context, h model.EntityHandle) error {
	if err := m.Batch.Erase(ctx, h); err != nil {
		return mutationFailed("erase", h, err)
	}
	return nil
}

// Replace overwrites the geometry of h.
func (m *Mutator) Replace(ctx context.Context, h model.EntityHandle, c geom.Curve) error {
	if err := m.Batch.Write(ctx, h, c); err != nil {
		return mutationFailed("write", h, err)
	}
	return nil
}

// Split cuts h wherever it passes through one of points. When a cut
// happens h is erased and the pieces are returned in curve order;
// otherwise the result is just h.
func (m *Mutator) Split(ctx context.Context, h model.EntityHandle, points []geom.Point) ([]model.EntityHandle, error) {
	c, err := m.Read(ctx, h)
	if err != nil {
		return nil, err
	}
	var params []geom.Param
	for _, p := range points {
		params = append(params, c.LocateAll(p, m.Tol)...)
	}
	pieces := c.SplitAt(params, m.Tol)
	if len(pieces) < 2 {
		return []model.EntityHandle{h}, nil
	}
	out := make([]model.EntityHandle, 0, len(pieces))
	for _, piece := range pieces {
		nh, err := m.Create(ctx, piece)
		if err != nil {
			return nil, err
		}
		out = append(out, nh)
	}
	if err := m.Erase(ctx, h); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mutator) edit(ctx context.Context, h model.EntityHandle, fn func(c geom.Curve) (geom.Curve, error)) error {
	c, err := m.Read(ctx, h)
	if err != nil {
		return err
	}
	out, err := fn(c)
	if err != nil {
		return err
	}
	return m.Replace(ctx, h, out)
}

func (m *Mutator) SetVertex(ctx context.Context, h model.EntityHandle, index int, p geom.Point) error {
	return m.edit(ctx, h, func(c geom.Curve) (geom.Curve, error) {
		if index < 0 || index >= len(c.Vertices) {
			return c, fmt.Errorf("vertex %d of %s: %w", index, h, model.ErrGeometryDegenerate)
		}
		return c.WithVertexMoved(index, p), nil
	})
}

func (m *Mutator) SetClosed(ctx context.Context, h model.EntityHandle, closed bool) error {
	return m.edit(ctx, h, func(c geom.Curve) (geom.Curve, error) {
		c.Closed = closed
		if closed && c.Kind == geom.KindLine {
			c.Kind = geom.KindPolyline
		}
		return c, nil
	})
}

func (m *Mutator) SetBulge(ctx context.Context, h model.EntityHandle, index int, bulge float64) error {
	return m.edit(ctx, h, func(c geom.Curve) (geom.Curve, error) {
		if index < 0 || index >= len(c.Vertices) {
			return c, fmt.Errorf("vertex %d of %s: %w", index, h, model.ErrGeometryDegenerate)
		}
		c = c.Clone()
		c.Vertices[index].Bulge = bulge
		return c, nil
	})
}

func (m *Mutator) SetElevation(ctx context.Context, h model.EntityHandle, z float64) error {
	return m.edit(ctx, h, func(c geom.Curve) (geom.Curve, error) {
		c.Elevation = z
		return c, nil
	})
}

func (m *Mutator) Reverse(ctx context.Context, h model.EntityHandle) error {
	return m.edit(ctx, h, func(c geom.Curve) (geom.Curve, error) {
		return c.Reversed(), nil
	})
}

// InsertVertexAt adds a vertex where h passes through p. It reports false
// when p is already a vertex or is not on the curve.
func (m *Mutator) InsertVertexAt(ctx context.Context, h model.EntityHandle, p geom.Point) (bool, error) {
	inserted := false
	err := m.edit(ctx, h, func(c geom.Curve) (geom.Curve, error) {
		for _, v := range c.Vertices {
			if v.Point.Equal(p, m.Tol) {
				return c, nil
			}
		}
		prm, d := c.Locate(p)
		if d > m.Tol.EqualPoint {
			return c, nil
		}
		seg := int(prm)
		if seg >= c.NumSegments() {
			return c, nil
		}
		inserted = true
		out := c.WithVertexInserted(seg, float64(prm)-float64(seg))
		out.Vertices[seg+1].Point = p
		return out, nil
	})
	return inserted, err
}

// RemoveVertices drops the given vertex indexes in one edit.
func (m *Mutator) RemoveVertices(ctx context.Context, h model.EntityHandle, indexes []int) error {
	idx := append([]int(nil), indexes...)
	sort.Sort(sort.Reverse(sort.IntSlice(idx)))
	return m.edit(ctx, h, func(c geom.Curve) (geom.Curve, error) {
		var err error
		for _, i := range idx {
			if i < 0 || i >= len(c.Vertices) {
				return c, fmt.Errorf("vertex %d of %s: %w", i, h, model.ErrGeometryDegenerate)
			}
			if c, err = c.WithVertexRemoved(i, m.Tol); err != nil {
				return c, err
			}
		}
		return c, nil
	})
}

func mutationFailed(op string, h model.EntityHandle, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return err
	}
	if h == "" {
		return fmt.Errorf("failed to %s: %w: %w", op, model.ErrStoreMutationFailed, err)
	}
	return fmt.Errorf("failed to %s %s: %w: %w", op, h, model.ErrStoreMutationFailed, err)
}
