package repository

import (
	"context"
	"errors"
	"time"

	"medconsult/backend/internal/session/domain"
)

var (
	// ErrAlreadyRevoked is returned by Rotate when the old session was revoked by someone else first.
	ErrAlreadyRevoked = errors.New("session already revoked")
	// ErrDuplicateHash is returned when a refresh token hash is already stored.
	ErrDuplicateHash = errors.New("duplicate refresh token hash")
)

// Repository defines persistence for sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByTokenHash returns the session for hash, or nil if not found.
	GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	// Revoke sets revoked_at only if it is unset. Reports whether this call revoked the session.
	Revoke(ctx context.Context, id string, reason domain.RevokeReason, at time.Time) (bool, error)
	// RevokeAllForUser revokes every unrevoked session of userID and returns how many were revoked.
	RevokeAllForUser(ctx context.Context, userID string, reason domain.RevokeReason, at time.Time) (int64, error)
	// Rotate revokes oldID (conditionally) and inserts next in one transaction.
	// Returns ErrAlreadyRevoked, with nothing written, when oldID was no longer unrevoked.
	Rotate(ctx context.Context, oldID string, next *domain.Session, at time.Time) error
	// ListActiveByUser returns unrevoked, unexpired sessions of userID, newest first.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
}
