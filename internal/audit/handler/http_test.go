package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"medconsult/backend/internal/audit/domain"
	auditrepo "medconsult/backend/internal/audit/repository"
	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/policy/engine"
	"medconsult/backend/internal/security"
	"medconsult/backend/internal/server/middleware"
)

func TestList(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, userID := range []string{"u1", "u2", "u1"} {
		err := repo.Create(context.Background(), &domain.AuditLog{
			ID: string(rune('a' + i)), UserID: userID, Action: domain.ActionLogin, Resource: domain.ResourceSession,
			IP: "203.0.113.1", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	authz, err := engine.NewOPAAuthorizer(context.Background())
	if err != nil {
		t.Fatalf("NewOPAAuthorizer: %v", err)
	}
	tokens := security.NewTestTokenProvider()
	errs := httpx.ErrorWriter{}
	r := chi.NewRouter()
	r.Mount("/api/v1/admin/audit-logs", NewHandler(repo, authz, errs).Routes(middleware.Authenticate(tokens, errs)))

	sign := func(role string) string {
		tok, _, err := tokens.SignAccess(security.TokenPayload{ID: "x", Email: "x@example.com", Role: role})
		if err != nil {
			t.Fatalf("SignAccess: %v", err)
		}
		return tok
	}
	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name       string
		path       string
		role       string
		wantStatus int
		wantCount  int
	}{
		{"all entries", "/api/v1/admin/audit-logs", "ADMIN", http.StatusOK, 3},
		{"filtered by user", "/api/v1/admin/audit-logs?userId=u1", "ADMIN", http.StatusOK, 2},
		{"limited", "/api/v1/admin/audit-logs?limit=1", "ADMIN", http.StatusOK, 1},
		{"bad limit", "/api/v1/admin/audit-logs?limit=0", "ADMIN", http.StatusBadRequest, 0},
		{"bad offset", "/api/v1/admin/audit-logs?offset=-1", "ADMIN", http.StatusBadRequest, 0},
		{"patient forbidden", "/api/v1/admin/audit-logs", "PATIENT", http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(tt.path, sign(tt.role))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var out listResponse
			if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(out.Entries) != tt.wantCount {
				t.Errorf("entries = %d, want %d", len(out.Entries), tt.wantCount)
			}
		})
	}
}
