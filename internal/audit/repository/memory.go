package repository

import (
	"context"
	"sort"
	"sync"

	"medconsult/backend/internal/audit/domain"
)

// MemoryRepository keeps audit logs in process.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.AuditLog
	for _, e := range r.entries {
		if userID == "" || e.UserID == userID {
			cp := *e
			matched = append(matched, &cp)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if int(offset) >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && int(limit) < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
