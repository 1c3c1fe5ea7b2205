// Package service implements admin operations on user accounts.
package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"medconsult/backend/internal/apperr"
	"medconsult/backend/internal/audit"
	auditdomain "medconsult/backend/internal/audit/domain"
	sessiondomain "medconsult/backend/internal/session/domain"
	"medconsult/backend/internal/telemetry"
	eventdomain "medconsult/backend/internal/telemetry/domain"
	"medconsult/backend/internal/user/domain"
	userrepo "medconsult/backend/internal/user/repository"
)

// SessionRevoker revokes every session of a user.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string, reason sessiondomain.RevokeReason, at time.Time) (int64, error)
}

// RevocationRecorder counts revoked sessions.
type RevocationRecorder interface {
	SessionsRevoked(reason string, n int64)
}

// AdminService reads accounts and toggles their activation.
type AdminService struct {
	users    userrepo.Repository
	sessions SessionRevoker
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
	metrics  RevocationRecorder
	now      func() time.Time
}

// Option configures an AdminService.
type Option func(*AdminService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AdminService) { s.now = now }
}

// WithAuditLogger records an audit row for each activation change.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *AdminService) { s.audit = l }
}

// WithEventEmitter publishes activation changes.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *AdminService) { s.events = e }
}

// WithRecorder counts sessions revoked by deactivation.
func WithRecorder(r RevocationRecorder) Option {
	return func(s *AdminService) { s.metrics = r }
}

// NewAdminService returns an AdminService.
func NewAdminService(users userrepo.Repository, sessions SessionRevoker, opts ...Option) *AdminService {
	s := &AdminService{users: users, sessions: sessions, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetUser returns the account with id, or NotFound.
func (s *AdminService) GetUser(ctx context.Context, id string) (*domain.Account, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.New(apperr.KindNotFound)
	}
	profile, err := s.users.GetProfile(ctx, u)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &domain.Account{User: u, Profile: profile}, nil
}

// SetActive activates or deactivates userID on behalf of actorID. Deactivation also revokes
// every session of the user, so refresh cannot mint new access tokens. Access tokens already
// issued stay valid until they expire. Admins cannot deactivate themselves.
func (s *AdminService) SetActive(ctx context.Context, actorID, userID string, active bool) (*domain.Account, error) {
	if !active && actorID == userID {
		return nil, apperr.Validation(apperr.FieldError{Field: "id", Message: "cannot deactivate your own account"})
	}
	now := s.now().UTC()
	found, err := s.users.SetActive(ctx, userID, active, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !found {
		return nil, apperr.New(apperr.KindNotFound)
	}

	action := auditdomain.ActionUserActivated
	var revoked int64
	if !active {
		action = auditdomain.ActionUserDeactivated
		revoked, err = s.sessions.RevokeAllForUser(ctx, userID, sessiondomain.RevokeReasonDeactivated, now)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if s.metrics != nil {
			s.metrics.SessionsRevoked(string(sessiondomain.RevokeReasonDeactivated), revoked)
		}
	}
	zerolog.Ctx(ctx).Info().
		Str("actor_id", actorID).
		Str("user_id", userID).
		Bool("active", active).
		Int64("revoked_sessions", revoked).
		Msg("user activation changed")
	if s.audit != nil {
		s.audit.LogEvent(ctx, actorID, action, auditdomain.ResourceUser,
			"user_id="+userID+" revoked="+strconv.FormatInt(revoked, 10))
	}
	telemetry.EmitAsync(s.events, ctx, &eventdomain.AuthEvent{
		Type:   eventdomain.EventUserActivationChanged,
		UserID: userID,
		Attributes: map[string]string{
			"actor_id":         actorID,
			"active":           strconv.FormatBool(active),
			"revoked_sessions": strconv.FormatInt(revoked, 10),
		},
		OccurredAt: now,
	})
	return s.GetUser(ctx, userID)
}
