package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/google/uuid"
)

// MemoryStore keeps curves in process. Batches are exclusive: BeginBatch
// blocks until the previous batch has committed or rolled back.
type MemoryStore struct {
	mu      sync.RWMutex
	writer  sync.Mutex
	curves  map[model.EntityHandle]geom.Curve
	order   []model.EntityHandle
	lineage []model.ReplacementEdge

	// NewHandle generates handles for created curves.
	NewHandle func() string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		curves:    make(map[model.EntityHandle]geom.Curve),
		NewHandle: func() string { return uuid.New().String() },
	}
}

func (s *MemoryStore) ReadGeometry(ctx context.Context, h model.EntityHandle) (geom.Curve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.curves[h]
	if !ok {
		return geom.Curve{}, fmt.Errorf("%s: %w", h, model.ErrNotFound)
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Handles(ctx context.Context) ([]model.EntityHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.EntityHandle(nil), s.order...), nil
}

func (s *MemoryStore) Add(ctx context.Context, c geom.Curve) (model.EntityHandle, error) {
	h := model.EntityHandle(s.NewHandle())
	return h, s.AddWithHandle(ctx, h, c)
}

func (s *MemoryStore) AddWithHandle(ctx context.Context, h model.EntityHandle, c geom.Curve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.curves[h]; ok {
		return fmt.Errorf("handle %s already exists", h)
	}
	s.curves[h] = c.Clone()
	s.order = append(s.order, h)
	return nil
}

// Lineage returns the replacement edges recorded so far.
func (s *MemoryStore) Lineage() []model.ReplacementEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ReplacementEdge(nil), s.lineage...)
}

// Clear drops every curve.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.Reset()
	return nil
}

// Reset drops every curve.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curves = make(map[model.EntityHandle]geom.Curve)
	s.order = nil
	s.lineage = nil
}

func (s *MemoryStore) BeginBatch(ctx context.Context) (Batch, error) {
	s.writer.Lock()
	return &memoryBatch{store: s, staged: make(map[model.EntityHandle]*geom.Curve)}, nil
}

// memoryBatch stages writes; a nil staged curve is an erase.
type memoryBatch struct {
	store   *MemoryStore
	staged  map[model.EntityHandle]*geom.Curve
	created []model.EntityHandle
	lineage []model.ReplacementEdge
	done    bool
}

func (b *memoryBatch) Read(ctx context.Context, h model.EntityHandle) (geom.Curve, error) {
	if b.done {
		return geom.Curve{}, errBatchDone
	}
	if c, ok := b.staged[h]; ok {
		if c == nil {
			return geom.Curve{}, fmt.Errorf("%s: %w", h, model.ErrNotFound)
		}
		return c.Clone(), nil
	}
	return b.store.ReadGeometry(ctx, h)
}

func (b *memoryBatch) Write(ctx context.Context, h model.EntityHandle, c geom.Curve) error {
	if _, err := b.Read(ctx, h); err != nil {
		return err
	}
	cc := c.Clone()
	b.staged[h] = &cc
	return nil
}

func (b *memoryBatch) Create(ctx context.Context, c geom.Curve) (model.EntityHandle, error) {
	if b.done {
		return "", errBatchDone
	}
	h := model.EntityHandle(b.store.NewHandle())
	cc := c.Clone()
	b.staged[h] = &cc
	b.created = append(b.created, h)
	return h, nil
}

func (b *memoryBatch) Erase(ctx context.Context, h model.EntityHandle) error {
	if _, err := b.Read(ctx, h); err != nil {
		return err
	}
	b.staged[h] = nil
	return nil
}

func (b *memoryBatch) RecordReplacement(ctx context.Context, edge model.ReplacementEdge) error {
	if b.done {
		return errBatchDone
	}
	b.lineage = append(b.lineage, edge)
	return nil
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	if b.done {
		return errBatchDone
	}
	b.done = true
	defer b.store.writer.Unlock()

	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, c := range b.staged {
		if c == nil {
			delete(s.curves, h)
		} else {
			s.curves[h] = *c
		}
	}
	s.order = append(s.order, b.created...)
	kept := s.order[:0]
	for _, h := range s.order {
		if _, ok := s.curves[h]; ok {
			kept = append(kept, h)
		}
	}
	s.order = kept
	s.lineage = append(s.lineage, b.lineage...)
	return nil
}

func (b *memoryBatch) Rollback(ctx context.Context) error {
	if b.done {
		return nil
	}
	b.done = true
	b.store.writer.Unlock()
	return nil
}
