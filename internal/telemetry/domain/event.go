package domain

import "time"

// EventType names a security-relevant auth event.
type EventType string

const (
	EventUserRegistered        EventType = "user.registered"
	EventLoginSucceeded        EventType = "auth.login_succeeded"
	EventLoginFailed           EventType = "auth.login_failed"
	EventTokenRefreshed        EventType = "auth.token_refreshed"
	EventRefreshReuseDetected  EventType = "auth.refresh_reuse_detected"
	EventLoggedOut             EventType = "auth.logged_out"
	EventLoggedOutEverywhere   EventType = "auth.logged_out_everywhere"
	EventUserActivationChanged EventType = "user.activation_changed"
)

// AuthEvent is published to the event bus and the OTel log pipeline. It never carries tokens or passwords.
type AuthEvent struct {
	Type       EventType         `json:"type"`
	UserID     string            `json:"user_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	IP         string            `json:"ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
