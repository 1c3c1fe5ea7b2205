// Package handler exposes the audit log to admins over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"medconsult/backend/internal/apperr"
	auditrepo "medconsult/backend/internal/audit/repository"
	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/platform/rbac"
	"medconsult/backend/internal/policy/engine"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Handler serves GET /admin/audit-logs.
type Handler struct {
	repo  auditrepo.Repository
	authz engine.Authorizer
	errs  httpx.ErrorWriter
}

// NewHandler returns a Handler.
func NewHandler(repo auditrepo.Repository, authz engine.Authorizer, errs httpx.ErrorWriter) *Handler {
	return &Handler{repo: repo, authz: authz, errs: errs}
}

// Routes returns the audit routes. authn must be middleware.Authenticate.
func (h *Handler) Routes(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authn, rbac.RequirePermission(h.authz, engine.ActionReadAuditLog, h.errs))
	r.Get("/", h.handleList)
	return r
}

type entryResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type listResponse struct {
	Entries []entryResponse `json:"entries"`
}

// handleList returns entries newest first. Query: userId, limit (1-200, default 50), offset.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultLimit, 1, maxLimit)
	if err != nil {
		h.errs.Write(w, r, apperr.Validation(apperr.FieldError{Field: "limit", Message: "must be an integer between 1 and 200"}))
		return
	}
	offset, err := intParam(q.Get("offset"), 0, 0, 1<<30)
	if err != nil {
		h.errs.Write(w, r, apperr.Validation(apperr.FieldError{Field: "offset", Message: "must be a non-negative integer"}))
		return
	}
	logs, err := h.repo.List(r.Context(), q.Get("userId"), int32(limit), int32(offset))
	if err != nil {
		h.errs.Write(w, r, apperr.Internal(err))
		return
	}
	out := listResponse{Entries: make([]entryResponse, 0, len(logs))}
	for _, l := range logs {
		out.Entries = append(out.Entries, entryResponse{
			ID:        l.ID,
			UserID:    l.UserID,
			Action:    l.Action,
			Resource:  l.Resource,
			IP:        l.IP,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt.UTC(),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func intParam(s string, def, min, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, strconv.ErrRange
	}
	return n, nil
}
