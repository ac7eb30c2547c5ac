package analysis

import (
	"context"
	"sync"
)

type MemoryStatusRepo struct {
	mu    sync.Mutex
	items map[string]MemberStatus
}

func NewMemoryStatusRepo() *MemoryStatusRepo {
	return &MemoryStatusRepo{items: map[string]MemberStatus{}}
}

func (r *MemoryStatusRepo) Upsert(ctx context.Context, s MemberStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.MemberID] = s
	return nil
}

func (r *MemoryStatusRepo) Get(ctx context.Context, memberID string) (MemberStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[memberID]
	if !ok {
		return MemberStatus{}, ErrNotFound
	}
	return s, nil
}
