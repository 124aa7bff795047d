package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/store"
)

var errMockRejected = errors.New("host rejected mutation")

// MockStore wraps a store and rejects erasing the handles in FailErase.
type MockStore struct {
	store.EntityStore
	FailErase map[model.EntityHandle]bool
	Batches   int
}

func (m *MockStore) BeginBatch(ctx context.Context) (store.Batch, error) {
	b, err := m.EntityStore.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	m.Batches++
	return &mockBatch{Batch: b, fail: m.FailErase}, nil
}

type mockBatch struct {
	store.Batch
	fail map[model.EntityHandle]bool
}

func (b *mockBatch) Erase(ctx context.Context, h model.EntityHandle) error {
	if b.fail[h] {
		return fmt.Errorf("erase %s: %w: %w", h, model.ErrStoreMutationFailed, errMockRejected)
	}
	return b.Batch.Erase(ctx, h)
}
