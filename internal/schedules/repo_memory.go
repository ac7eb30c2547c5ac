package schedules

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory schedule repository for tests and local runs.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Schedule
	phones map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: map[int64]Schedule{}, phones: map[string]string{}}
}

// SetPhone registers the member phone number joined by ListActive.
func (r *MemoryRepo) SetPhone(memberID, phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phones[memberID] = phone
}

func (r *MemoryRepo) ListActive(ctx context.Context) ([]Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Schedule, 0, len(r.items))
	for _, s := range r.items {
		if !s.Active {
			continue
		}
		s.PhoneNumber = r.phones[s.MemberID]
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id int64) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) Create(ctx context.Context, s Schedule) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == 0 {
		r.nextID++
		s.ID = r.nextID
	} else if s.ID > r.nextID {
		r.nextID = s.ID
	}
	s.PhoneNumber = ""
	r.items[s.ID] = s
	return s, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id int64, fn func(*Schedule) error) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	if err := fn(&s); err != nil {
		return Schedule{}, err
	}
	s.ID = id
	r.items[id] = s
	return s, nil
}
