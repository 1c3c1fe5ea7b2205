package domain

import "time"

// Audit actions written by the auth core and admin endpoints.
const (
	ActionRegister             = "register"
	ActionLogin                = "login"
	ActionLoginFailure         = "login_failure"
	ActionRefresh              = "refresh"
	ActionRefreshReuseDetected = "refresh_reuse_detected"
	ActionLogout               = "logout"
	ActionLogoutAll            = "logout_all"
	ActionUserDeactivated      = "user_deactivated"
	ActionUserActivated        = "user_activated"
)

// Audit resources.
const (
	ResourceUser    = "user"
	ResourceSession = "session"
)

// AuditLog represents an audit event. UserID is empty when the actor is unknown (e.g. a failed login).
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
