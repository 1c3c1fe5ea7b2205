package repository

import (
	"context"
	"sync"
	"time"

	"medconsult/backend/internal/user/domain"
)

// MemoryRepository is an in-process Repository for tests and database-less local runs.
type MemoryRepository struct {
	mu       sync.Mutex
	byID     map[string]*domain.User
	byEmail  map[string]string
	profiles map[string]domain.Profile
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]*domain.User),
		byEmail:  make(map[string]string),
		profiles: make(map[string]domain.Profile),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	id, ok := r.byEmail[email]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User, profile domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[u.Email]; taken {
		return ErrEmailTaken
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = u.ID
	r.profiles[u.ID] = profile
	return nil
}

func (r *MemoryRepository) GetProfile(ctx context.Context, u *domain.User) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[u.ID], nil
}

func (r *MemoryRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	u.IsActive = active
	u.UpdatedAt = at
	return true, nil
}
