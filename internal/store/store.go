package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
)

// EntityStore owns the curves being cleaned. Reads of erased or unknown
// handles fail with model.ErrNotFound.
type EntityStore interface {
	ReadGeometry(ctx context.Context, h model.EntityHandle) (geom.Curve, error)
	Handles(ctx context.Context) ([]model.EntityHandle, error)
	BeginBatch(ctx context.Context) (Batch, error)
}

// Batch is an exclusive, atomic set of mutations. Reads through a batch see
// its own uncommitted writes. After Commit or Rollback the batch is dead.
type Batch interface {
	Read(ctx context.Context, h model.EntityHandle) (geom.Curve, error)
	Write(ctx context.Context, h model.EntityHandle, c geom.Curve) error
	Create(ctx context.Context, c geom.Curve) (model.EntityHandle, error)
	Erase(ctx context.Context, h model.EntityHandle) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// LineageRecorder is implemented by batches that persist replacement edges.
type LineageRecorder interface {
	RecordReplacement(ctx context.Context, edge model.ReplacementEdge) error
}

// Loader is implemented by stores that accept bulk imports.
type Loader interface {
	Add(ctx context.Context, c geom.Curve) (model.EntityHandle, error)
	AddWithHandle(ctx context.Context, h model.EntityHandle, c geom.Curve) error
}

// Snapshot reads every live entity in store order.
func Snapshot(ctx context.Context, s EntityStore) ([]model.Entity, error) {
	handles, err := s.Handles(ctx)
	if err != nil {
		return nil, err
	}
	return Read(ctx, s, handles)
}

// Read loads the given handles, silently dropping those that are gone.
func Read(ctx context.Context, s EntityStore, handles []model.EntityHandle) ([]model.Entity, error) {
	out := make([]model.Entity, 0, len(handles))
	for _, h := range handles {
		c, err := s.ReadGeometry(ctx, h)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", h, err)
		}
		out = append(out, model.Entity{Handle: h, Geometry: c})
	}
	return out, nil
}

// WithBatch runs fn inside a batch and commits when fn succeeds. Any error
// or panic rolls the batch back.
func WithBatch(ctx context.Context, s EntityStore, fn func(b Batch) error) (err error) {
	b, err := s.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	committed := false
	defer func() {
		if r := recover(); r != nil {
			_ = b.Rollback(ctx)
			panic(r)
		}
		if !committed {
			_ = b.Rollback(ctx)
		}
	}()
	if err := fn(b); err != nil {
		return err
	}
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w: %w", model.ErrStoreMutationFailed, err)
	}
	committed = true
	return nil
}

var errBatchDone = errors.New("batch already committed or rolled back")
