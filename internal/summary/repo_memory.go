package summary

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.

type MemoryRepo struct {
	mu     sync.Mutex
	byCall map[string]Summary
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byCall: make(map[string]Summary)}
}

func (r *MemoryRepo) Insert(ctx context.Context, s Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCall[s.CallID]; ok {
		return ErrAlreadyExists
	}
	r.byCall[s.CallID] = s
	return nil
}

func (r *MemoryRepo) GetByCallID(ctx context.Context, callID string) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byCall[callID]
	if !ok {
		return Summary{}, ErrNotFound
	}
	return s, nil
}
