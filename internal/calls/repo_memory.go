package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory call record repository for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]CallRecord
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{records: map[string]CallRecord{}} }

func (r *MemoryRepo) Create(ctx context.Context, rec CallRecord) error {
	if rec.ID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ProviderCallID != "" {
		for _, existing := range r.records {
			if existing.ProviderCallID == rec.ProviderCallID {
				return ErrDuplicate
			}
		}
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) SetProviderCallID(ctx context.Context, id, providerCallID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	for otherID, existing := range r.records {
		if otherID != id && existing.ProviderCallID == providerCallID {
			return ErrDuplicate
		}
	}
	rec.ProviderCallID = providerCallID
	r.records[id] = rec
	return nil
}

func (r *MemoryRepo) MarkPlacementFailed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status == StatusQueued && rec.ProviderCallID == "" {
		rec.Status = StatusFailed
		r.records[id] = rec
	}
	return nil
}

func (r *MemoryRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if providerCallID != "" && rec.ProviderCallID == providerCallID {
			return cloneRecord(rec), nil
		}
	}
	return CallRecord{}, ErrNotFound
}

func (r *MemoryRepo) FinalizeTranscript(ctx context.Context, id string, status Status, transcript string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Transcript != nil {
		return false, nil
	}
	t := transcript
	rec.Transcript = &t
	rec.Status = status
	r.records[id] = rec
	return true, nil
}

func (r *MemoryRepo) ListByMemberBetween(ctx context.Context, memberID string, from, to time.Time) ([]CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, 0)
	for _, rec := range r.records {
		if rec.MemberID != memberID {
			continue
		}
		if rec.RequestedAt.Before(from) || rec.RequestedAt.After(to) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (r *MemoryRepo) ListRecentByMember(ctx context.Context, memberID string, kind Kind, limit int) ([]CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, 0)
	for _, rec := range r.records {
		if rec.MemberID != memberID {
			continue
		}
		if kind != "" && rec.Kind != kind {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a record by internal id. Test helper.
func (r *MemoryRepo) Get(id string) (CallRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return cloneRecord(rec), ok
}

// All returns every stored record. Test helper.
func (r *MemoryRepo) All() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, cloneRecord(rec))
	}
	return out
}

func cloneRecord(rec CallRecord) CallRecord {
	out := rec
	out.Transcript = clonePtr(rec.Transcript)
	out.ResultSentiment = clonePtr(rec.ResultSentiment)
	out.Summary = clonePtr(rec.Summary)
	return out
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// MemoryMemberDirectory maps member ids to phone numbers.
type MemoryMemberDirectory map[string]string

func (d MemoryMemberDirectory) PhoneNumber(ctx context.Context, memberID string) (string, error) {
	p, ok := d[memberID]
	if !ok {
		return "", ErrNotFound
	}
	return p, nil
}
