package repository

import (
	"context"
	"errors"
	"time"

	"medconsult/backend/internal/user/domain"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Repository defines persistence for users and their role profiles.
// Lookups return (nil, nil) when the user does not exist.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create inserts the user and its profile atomically.
	Create(ctx context.Context, u *domain.User, profile domain.Profile) error
	GetProfile(ctx context.Context, u *domain.User) (domain.Profile, error)
	// SetActive flips is_active. Returns false when the user does not exist.
	SetActive(ctx context.Context, id string, active bool, at time.Time) (bool, error)
}
