package factory

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[uint64]Record
}

// NewMemoryRepository constructs an in-memory registry repository for tests
// and development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[uint64]Record)}
}

func (r *memoryRepository) Create(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[record.ID]; exists {
		return errors.New("registry id already assigned")
	}
	r.storage[record.ID] = record
	return nil
}

func (r *memoryRepository) ByID(_ context.Context, id uint64) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.storage[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return record, nil
}
