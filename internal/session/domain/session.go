package domain

import "time"

// RevokeReason records why a session stopped being usable.
type RevokeReason string

const (
	RevokeReasonLogout        RevokeReason = "logout"
	RevokeReasonRotation      RevokeReason = "rotation"
	RevokeReasonReuseDetected RevokeReason = "reuse_detected"
	RevokeReasonLogoutAll     RevokeReason = "logout_all"
	RevokeReasonDeactivated   RevokeReason = "user_deactivated"
)

// Session is one refresh-token lineage step. Rows are never deleted; revocation is a timestamp.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string // SHA-256 hex of the refresh token; unique
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil while not revoked
	RevokedReason    RevokeReason
	ReplacedBy       string // id of the session minted when this one was rotated
	UserAgent        string
	IPAddress        string
	CreatedAt        time.Time
}

// IsRevoked reports whether the session has been revoked.
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsExpired reports whether the session's expiry is strictly before now.
func (s *Session) IsExpired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// IsActive reports whether the session is neither revoked nor expired at now.
func (s *Session) IsActive(now time.Time) bool {
	return !s.IsRevoked() && s.ExpiresAt.After(now)
}
