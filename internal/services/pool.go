package services

import (
	"context"

	"golang.org/x/sync/semaphore"

	"dbrest/internal/database"
)

// RecordStore executes generated statements.
type RecordStore interface {
	Query(ctx context.Context, stmt database.Statement) ([]map[string]any, error)
	Insert(ctx context.Context, stmt database.Statement) (any, error)
	Exec(ctx context.Context, stmt database.Statement) (int64, error)
}

// QueryPool bounds the number of statements running at once across all
// request handlers. Callers still block until their own statement finishes.
type QueryPool struct {
	store RecordStore
	slots *semaphore.Weighted
}

func NewQueryPool(store RecordStore, size int) *QueryPool {
	if size <= 0 {
		size = 1
	}
	return &QueryPool{store: store, slots: semaphore.NewWeighted(int64(size))}
}

func (p *QueryPool) Query(ctx context.Context, stmt database.Statement) ([]map[string]any, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.slots.Release(1)
	return p.store.Query(ctx, stmt)
}

func (p *QueryPool) Insert(ctx context.Context, stmt database.Statement) (any, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.slots.Release(1)
	return p.store.Insert(ctx, stmt)
}

func (p *QueryPool) Exec(ctx context.Context, stmt database.Statement) (int64, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer p.slots.Release(1)
	return p.store.Exec(ctx, stmt)
}
