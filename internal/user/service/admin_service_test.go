package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"medconsult/backend/internal/apperr"
	"medconsult/backend/internal/audit"
	auditdomain "medconsult/backend/internal/audit/domain"
	auditrepo "medconsult/backend/internal/audit/repository"
	sessiondomain "medconsult/backend/internal/session/domain"
	sessionrepo "medconsult/backend/internal/session/repository"
	"medconsult/backend/internal/user/domain"
	userrepo "medconsult/backend/internal/user/repository"
)

type countingRecorder struct {
	revoked map[string]int64
}

func (c *countingRecorder) SessionsRevoked(reason string, n int64) {
	c.revoked[reason] += n
}

var now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, users *userrepo.MemoryRepository, id string, role domain.Role) {
	t.Helper()
	u := &domain.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "hash",
		FullName:     "User " + id,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := domain.Profile{}
	if role == domain.RolePatient {
		profile.Patient = &domain.PatientProfile{UserID: id}
	}
	if err := users.Create(context.Background(), u, profile); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func seedSession(t *testing.T, sessions *sessionrepo.MemoryRepository, id, userID string) {
	t.Helper()
	err := sessions.Create(context.Background(), &sessiondomain.Session{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: "hash-" + id,
		ExpiresAt:        now.Add(24 * time.Hour),
		CreatedAt:        now,
	})
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
}

func TestSetActive_DeactivateRevokesSessions(t *testing.T) {
	users := userrepo.NewMemoryRepository()
	sessions := sessionrepo.NewMemoryRepository()
	audits := auditrepo.NewMemoryRepository()
	rec := &countingRecorder{revoked: map[string]int64{}}
	seedUser(t, users, "admin", domain.RoleAdmin)
	seedUser(t, users, "patient", domain.RolePatient)
	seedSession(t, sessions, "s1", "patient")
	seedSession(t, sessions, "s2", "patient")
	seedSession(t, sessions, "s3", "admin")

	svc := NewAdminService(users, sessions,
		WithClock(func() time.Time { return now }),
		WithAuditLogger(audit.NewLogger(audits, nil, zerolog.Nop())),
		WithRecorder(rec),
	)
	acct, err := svc.SetActive(context.Background(), "admin", "patient", false)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if acct.User.IsActive {
		t.Error("user should be inactive")
	}
	if acct.Profile.Patient == nil {
		t.Error("account should include the patient profile")
	}
	active, err := sessions.ListActiveByUser(context.Background(), "patient", now)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active sessions = %d, want 0", len(active))
	}
	revoked, _ := sessions.GetByTokenHash(context.Background(), "hash-s1")
	if revoked.RevokedReason != sessiondomain.RevokeReasonDeactivated {
		t.Errorf("reason = %q, want %q", revoked.RevokedReason, sessiondomain.RevokeReasonDeactivated)
	}
	if others, _ := sessions.ListActiveByUser(context.Background(), "admin", now); len(others) != 1 {
		t.Error("other users' sessions must stay active")
	}
	if rec.revoked[string(sessiondomain.RevokeReasonDeactivated)] != 2 {
		t.Errorf("revoked metric = %v", rec.revoked)
	}
	logs, _ := audits.List(context.Background(), "admin", 10, 0)
	if len(logs) != 1 || logs[0].Action != auditdomain.ActionUserDeactivated {
		t.Errorf("audit logs = %+v", logs)
	}

	acct, err = svc.SetActive(context.Background(), "admin", "patient", true)
	if err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if !acct.User.IsActive {
		t.Error("user should be active again")
	}
}

func TestSetActive_Errors(t *testing.T) {
	users := userrepo.NewMemoryRepository()
	seedUser(t, users, "admin", domain.RoleAdmin)
	svc := NewAdminService(users, sessionrepo.NewMemoryRepository())

	tests := []struct {
		name   string
		actor  string
		target string
		want   apperr.Kind
	}{
		{"unknown user", "admin", "ghost", apperr.KindNotFound},
		{"self deactivation", "admin", "admin", apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetActive(context.Background(), tt.actor, tt.target, false)
			if got := apperr.KindOf(err); err == nil || got != tt.want {
				t.Errorf("err = %v, want kind %v", err, tt.want)
			}
		})
	}
}

func TestGetUser(t *testing.T) {
	users := userrepo.NewMemoryRepository()
	seedUser(t, users, "patient", domain.RolePatient)
	svc := NewAdminService(users, sessionrepo.NewMemoryRepository())

	acct, err := svc.GetUser(context.Background(), "patient")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if acct.User.Email != "patient@example.com" {
		t.Errorf("email = %q", acct.User.Email)
	}
	if _, err := svc.GetUser(context.Background(), "ghost"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("GetUser(ghost) err = %v, want NOT_FOUND", err)
	}
}
