// Package service implements the auth core: registration, login, refresh-token rotation
// with reuse detection, logout, and the current-user read.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medconsult/backend/internal/apperr"
	"medconsult/backend/internal/audit"
	auditdomain "medconsult/backend/internal/audit/domain"
	"medconsult/backend/internal/security"
	sessiondomain "medconsult/backend/internal/session/domain"
	sessionrepo "medconsult/backend/internal/session/repository"
	"medconsult/backend/internal/telemetry"
	eventdomain "medconsult/backend/internal/telemetry/domain"
	userdomain "medconsult/backend/internal/user/domain"
	userrepo "medconsult/backend/internal/user/repository"
)

// ClientInfo describes the caller of an auth operation. Both fields are optional.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// RegisterInput is the public registration request. Only the profile matching Role is used.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     string
	Patient  *userdomain.PatientProfile
	Doctor   *userdomain.DoctorProfile
}

// AuthResult holds issued tokens. Account is set by Register and Login only.
type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        string
	Account          *userdomain.Account
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User, profile userdomain.Profile) error
	GetProfile(ctx context.Context, u *userdomain.User) (userdomain.Profile, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByTokenHash(ctx context.Context, hash string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, id string, reason sessiondomain.RevokeReason, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, reason sessiondomain.RevokeReason, at time.Time) (int64, error)
	Rotate(ctx context.Context, oldID string, next *sessiondomain.Session, at time.Time) error
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*sessiondomain.Session, error)
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	ObserveAuth(operation, outcome string)
	SessionsRevoked(reason string, n int64)
}

// AuthService implements the auth protocol over injected stores.
type AuthService struct {
	users       UserRepo
	sessions    SessionRepo
	credentials *CredentialVerifier
	tokens      *security.TokenProvider
	audit       audit.AuditLogger
	events      telemetry.EventEmitter
	metrics     Recorder
	now         func() time.Time
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock overrides time.Now. Pass the same clock to security.WithClock.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithAuditLogger records audit rows for every outcome.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *AuthService) { s.audit = l }
}

// WithEventEmitter publishes security events asynchronously.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *AuthService) { s.events = e }
}

// WithRecorder counts operation outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *AuthService) { s.metrics = r }
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, sessions SessionRepo, credentials *CredentialVerifier, tokens *security.TokenProvider, opts ...Option) *AuthService {
	s := &AuthService{
		users:       users,
		sessions:    sessions,
		credentials: credentials,
		tokens:      tokens,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a PATIENT or DOCTOR account with its profile and opens a first session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, client ClientInfo) (res *AuthResult, err error) {
	defer s.observe("register", &err)

	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	now := s.now().UTC()
	role, err := validateRegister(&in, now)
	if err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.KindUserExists)
	}
	hash, err := s.credentials.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, apperr.Internal(err)
	}
	profile := buildProfile(user, in)
	if err := s.users.Create(ctx, user, profile); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, apperr.New(apperr.KindUserExists)
		}
		return nil, apperr.Internal(err)
	}

	res, err = s.issue(ctx, user, client)
	if err != nil {
		return nil, err
	}
	res.Account = &userdomain.Account{User: user, Profile: profile}
	s.record(ctx, user.ID, auditdomain.ActionRegister, auditdomain.ResourceUser, "role="+string(role))
	s.emit(ctx, eventdomain.EventUserRegistered, user.ID, res.SessionID, client, map[string]string{"role": string(role)})
	return res, nil
}

// Login authenticates email and password. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (res *AuthResult, err error) {
	defer s.observe("login", &err)

	email = normalizeEmail(email)
	if err := validateLogin(email, password); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		s.credentials.VerifyUnknown(password)
		s.loginFailed(ctx, "", client, "unknown_email")
		return nil, apperr.New(apperr.KindInvalidCredentials)
	}
	if err := AssertActive(user); err != nil {
		s.loginFailed(ctx, user.ID, client, "deactivated")
		return nil, err
	}
	if !s.credentials.VerifyPassword(password, user.PasswordHash) {
		s.loginFailed(ctx, user.ID, client, "bad_password")
		return nil, apperr.New(apperr.KindInvalidCredentials)
	}

	profile, err := s.users.GetProfile(ctx, user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	res, err = s.issue(ctx, user, client)
	if err != nil {
		return nil, err
	}
	res.Account = &userdomain.Account{User: user, Profile: profile}
	s.record(ctx, user.ID, auditdomain.ActionLogin, auditdomain.ResourceSession, "session_id="+res.SessionID)
	s.emit(ctx, eventdomain.EventLoginSucceeded, user.ID, res.SessionID, client, nil)
	return res, nil
}

// Refresh rotates a refresh token. Presenting a token whose session is already revoked
// revokes every session of the user and fails with TokenReuseDetected.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, client ClientInfo) (res *AuthResult, err error) {
	defer s.observe("refresh", &err)

	if rawRefresh == "" {
		return nil, apperr.New(apperr.KindInvalidRefreshToken)
	}
	// An expired signature still reaches the session lookup so an expired
	// session reports RefreshTokenExpired rather than a generic failure.
	payload, verr := s.tokens.VerifyRefresh(rawRefresh)
	tokenExpired := errors.Is(verr, security.ErrTokenExpired)
	if verr != nil && !tokenExpired {
		return nil, apperr.New(apperr.KindInvalidRefreshToken)
	}

	sess, err := s.sessions.GetByTokenHash(ctx, security.HashRefreshToken(rawRefresh))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if sess == nil || sess.UserID != payload.ID || !security.RefreshTokenHashEqual(rawRefresh, sess.RefreshTokenHash) {
		return nil, apperr.New(apperr.KindInvalidRefreshToken)
	}
	now := s.now().UTC()
	if tokenExpired || sess.IsExpired(now) {
		return nil, apperr.New(apperr.KindRefreshTokenExpired)
	}
	if sess.IsRevoked() {
		return nil, s.reuseDetected(ctx, sess, client, now)
	}

	access, accessExp, err := s.tokens.SignAccess(payload)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, refreshExp, err := s.tokens.SignRefresh(payload)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	next := s.newSession(sess.UserID, refresh, refreshExp, client, now)
	if err := s.sessions.Rotate(ctx, sess.ID, next, now); err != nil {
		if errors.Is(err, sessionrepo.ErrAlreadyRevoked) {
			// Lost a concurrent rotation of the same token.
			return nil, s.reuseDetected(ctx, sess, client, now)
		}
		return nil, apperr.Internal(err)
	}
	s.revoked(sessiondomain.RevokeReasonRotation, 1)
	s.record(ctx, sess.UserID, auditdomain.ActionRefresh, auditdomain.ResourceSession, "session_id="+next.ID+" replaces="+sess.ID)
	s.emit(ctx, eventdomain.EventTokenRefreshed, sess.UserID, next.ID, client, map[string]string{"replaces": sess.ID})
	return &AuthResult{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        next.ID,
	}, nil
}

// Logout revokes the session of rawRefresh if it is active. Absent, revoked and
// expired sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string, client ClientInfo) (err error) {
	defer s.observe("logout", &err)

	if rawRefresh == "" {
		return nil
	}
	sess, err := s.sessions.GetByTokenHash(ctx, security.HashRefreshToken(rawRefresh))
	if err != nil {
		return apperr.Internal(err)
	}
	now := s.now().UTC()
	if sess == nil || !sess.IsActive(now) {
		return nil
	}
	ok, err := s.sessions.Revoke(ctx, sess.ID, sessiondomain.RevokeReasonLogout, now)
	if err != nil {
		return apperr.Internal(err)
	}
	if ok {
		s.revoked(sessiondomain.RevokeReasonLogout, 1)
		s.record(ctx, sess.UserID, auditdomain.ActionLogout, auditdomain.ResourceSession, "session_id="+sess.ID)
		s.emit(ctx, eventdomain.EventLoggedOut, sess.UserID, sess.ID, client, nil)
	}
	return nil
}

// LogoutAll revokes every session of userID and returns how many were revoked.
func (s *AuthService) LogoutAll(ctx context.Context, userID string, client ClientInfo) (n int64, err error) {
	defer s.observe("logout_all", &err)

	n, err = s.sessions.RevokeAllForUser(ctx, userID, sessiondomain.RevokeReasonLogoutAll, s.now().UTC())
	if err != nil {
		return 0, apperr.Internal(err)
	}
	s.revoked(sessiondomain.RevokeReasonLogoutAll, n)
	s.record(ctx, userID, auditdomain.ActionLogoutAll, auditdomain.ResourceSession, "revoked="+strconv.FormatInt(n, 10))
	s.emit(ctx, eventdomain.EventLoggedOutEverywhere, userID, "", client, map[string]string{"revoked_sessions": strconv.FormatInt(n, 10)})
	return n, nil
}

// ListSessions returns the active sessions of userID, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	list, err := s.sessions.ListActiveByUser(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// RevokeSession revokes one active session owned by userID. Sessions of other users,
// and sessions that are already revoked or expired, are reported as NotFound.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string, client ClientInfo) (err error) {
	defer s.observe("revoke_session", &err)

	now := s.now().UTC()
	list, err := s.sessions.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return apperr.Internal(err)
	}
	var target *sessiondomain.Session
	for _, sess := range list {
		if sess.ID == sessionID {
			target = sess
			break
		}
	}
	if target == nil {
		return apperr.New(apperr.KindNotFound)
	}
	ok, err := s.sessions.Revoke(ctx, target.ID, sessiondomain.RevokeReasonLogout, now)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.New(apperr.KindNotFound)
	}
	s.revoked(sessiondomain.RevokeReasonLogout, 1)
	s.record(ctx, userID, auditdomain.ActionLogout, auditdomain.ResourceSession, "session_id="+target.ID)
	s.emit(ctx, eventdomain.EventLoggedOut, userID, target.ID, client, nil)
	return nil
}

// Me returns the account behind a verified access token.
//
// Deactivation is not re-checked here: a deactivated user keeps using an
// already-issued access token until it expires. It is enforced at login, and
// the admin deactivate action revokes every session so refresh cannot mint
// another access token.
func (s *AuthService) Me(ctx context.Context, userID string) (acct *userdomain.Account, err error) {
	defer s.observe("me", &err)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.New(apperr.KindUnauthorized)
	}
	profile, err := s.users.GetProfile(ctx, user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &userdomain.Account{User: user, Profile: profile}, nil
}

// issue signs both tokens for user and stores the new session.
func (s *AuthService) issue(ctx context.Context, user *userdomain.User, client ClientInfo) (*AuthResult, error) {
	payload := security.TokenPayload{ID: user.ID, Email: user.Email, Role: string(user.Role)}
	access, accessExp, err := s.tokens.SignAccess(payload)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, refreshExp, err := s.tokens.SignRefresh(payload)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sess := s.newSession(user.ID, refresh, refreshExp, client, s.now().UTC())
	if err := s.sessions.Create(ctx, sess); err != nil {
		// A hash collision is treated as an internal failure.
		return nil, apperr.Internal(err)
	}
	return &AuthResult{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.ID,
	}, nil
}

func (s *AuthService) newSession(userID, rawRefresh string, expiresAt time.Time, client ClientInfo, now time.Time) *sessiondomain.Session {
	return &sessiondomain.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		RefreshTokenHash: security.HashRefreshToken(rawRefresh),
		ExpiresAt:        expiresAt.UTC(),
		UserAgent:        client.UserAgent,
		IPAddress:        client.IPAddress,
		CreatedAt:        now,
	}
}

// reuseDetected revokes every session of the token's owner. The returned error is
// TokenReuseDetected only when the revocation itself succeeded.
func (s *AuthService) reuseDetected(ctx context.Context, sess *sessiondomain.Session, client ClientInfo, now time.Time) error {
	n, err := s.sessions.RevokeAllForUser(ctx, sess.UserID, sessiondomain.RevokeReasonReuseDetected, now)
	if err != nil {
		return apperr.Internal(err)
	}
	zerolog.Ctx(ctx).Warn().
		Str("user_id", sess.UserID).
		Str("session_id", sess.ID).
		Int64("revoked_sessions", n).
		Msg("refresh token reuse detected")
	s.revoked(sessiondomain.RevokeReasonReuseDetected, n)
	s.record(ctx, sess.UserID, auditdomain.ActionRefreshReuseDetected, auditdomain.ResourceSession,
		"session_id="+sess.ID+" revoked="+strconv.FormatInt(n, 10))
	s.emit(ctx, eventdomain.EventRefreshReuseDetected, sess.UserID, sess.ID, client,
		map[string]string{"revoked_sessions": strconv.FormatInt(n, 10)})
	return apperr.New(apperr.KindTokenReuseDetected)
}

func (s *AuthService) loginFailed(ctx context.Context, userID string, client ClientInfo, reason string) {
	s.record(ctx, userID, auditdomain.ActionLoginFailure, auditdomain.ResourceSession, "reason="+reason)
	s.emit(ctx, eventdomain.EventLoginFailed, userID, "", client, map[string]string{"reason": reason})
}

func (s *AuthService) record(ctx context.Context, userID, action, resource, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, userID, action, resource, metadata)
}

func (s *AuthService) emit(ctx context.Context, typ eventdomain.EventType, userID, sessionID string, client ClientInfo, attrs map[string]string) {
	telemetry.EmitAsync(s.events, ctx, &eventdomain.AuthEvent{
		Type:       typ,
		UserID:     userID,
		SessionID:  sessionID,
		IP:         client.IPAddress,
		UserAgent:  client.UserAgent,
		Attributes: attrs,
		OccurredAt: s.now().UTC(),
	})
}

func (s *AuthService) observe(operation string, errp *error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if *errp != nil {
		outcome = apperr.KindOf(*errp).Code()
	}
	s.metrics.ObserveAuth(operation, outcome)
}

func (s *AuthService) revoked(reason sessiondomain.RevokeReason, n int64) {
	if s.metrics != nil {
		s.metrics.SessionsRevoked(string(reason), n)
	}
}

func buildProfile(user *userdomain.User, in RegisterInput) userdomain.Profile {
	switch user.Role {
	case userdomain.RolePatient:
		p := userdomain.PatientProfile{}
		if in.Patient != nil {
			p = *in.Patient
		}
		p.UserID = user.ID
		p.Gender = strings.TrimSpace(p.Gender)
		p.Phone = strings.TrimSpace(p.Phone)
		return userdomain.Profile{Patient: &p}
	case userdomain.RoleDoctor:
		d := userdomain.DoctorProfile{}
		if in.Doctor != nil {
			d = *in.Doctor
		}
		d.UserID = user.ID
		d.Specialty = strings.TrimSpace(d.Specialty)
		d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
		return userdomain.Profile{Doctor: &d}
	}
	return userdomain.Profile{}
}
