package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"medconsult/backend/internal/session/domain"
)

// MemoryRepository is an in-process Repository. A single mutex gives Rotate the
// same all-or-nothing behaviour as the Postgres transaction.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*domain.Session
	byHash map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*domain.Session),
		byHash: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(s)
}

func (r *MemoryRepository) insertLocked(s *domain.Session) error {
	if _, dup := r.byHash[s.RefreshTokenHash]; dup {
		return ErrDuplicateHash
	}
	cp := *s
	r.byID[s.ID] = &cp
	r.byHash[s.RefreshTokenHash] = s.ID
	return nil
}

func (r *MemoryRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHash[hash]
	if !ok {
		return nil, nil
	}
	return copySession(r.byID[id]), nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string, reason domain.RevokeReason, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revokeLocked(id, reason, at), nil
}

func (r *MemoryRepository) revokeLocked(id string, reason domain.RevokeReason, at time.Time) bool {
	s, ok := r.byID[id]
	if !ok || s.RevokedAt != nil {
		return false
	}
	t := at
	s.RevokedAt = &t
	s.RevokedReason = reason
	return true
}

func (r *MemoryRepository) RevokeAllForUser(ctx context.Context, userID string, reason domain.RevokeReason, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.byID {
		if s.UserID == userID && r.revokeLocked(id, reason, at) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Rotate(ctx context.Context, oldID string, next *domain.Session, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[oldID]
	if !ok || old.RevokedAt != nil {
		return ErrAlreadyRevoked
	}
	if _, dup := r.byHash[next.RefreshTokenHash]; dup {
		return ErrDuplicateHash
	}
	r.revokeLocked(oldID, domain.RevokeReasonRotation, at)
	old.ReplacedBy = next.ID
	return r.insertLocked(next)
}

func (r *MemoryRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.byID {
		if s.UserID == userID && s.IsActive(now) {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func copySession(s *domain.Session) *domain.Session {
	cp := *s
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp
}
