// Package handler exposes admin user management over HTTP and the account projection shared with the auth routes.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/platform/rbac"
	"medconsult/backend/internal/policy/engine"
	"medconsult/backend/internal/server/middleware"
	"medconsult/backend/internal/user/service"
)

// AdminHandler serves /admin/users. Every route requires an ADMIN access token.
type AdminHandler struct {
	admin *service.AdminService
	authz engine.Authorizer
	errs  httpx.ErrorWriter
}

// NewAdminHandler returns an AdminHandler.
func NewAdminHandler(admin *service.AdminService, authz engine.Authorizer, errs httpx.ErrorWriter) *AdminHandler {
	return &AdminHandler{admin: admin, authz: authz, errs: errs}
}

// Routes returns the admin user routes. authn must be middleware.Authenticate.
func (h *AdminHandler) Routes(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authn)
	r.With(rbac.RequirePermission(h.authz, engine.ActionReadUser, h.errs)).Get("/{id}", h.handleGet)
	r.With(rbac.RequirePermission(h.authz, engine.ActionSetUserActive, h.errs)).Post("/{id}/deactivate", h.handleSetActive(false))
	r.With(rbac.RequirePermission(h.authz, engine.ActionSetUserActive, h.errs)).Post("/{id}/activate", h.handleSetActive(true))
	return r
}

func (h *AdminHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	acct, err := h.admin.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, NewAccountResponse(acct))
}

func (h *AdminHandler) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := middleware.GetIdentity(r.Context())
		acct, err := h.admin.SetActive(r.Context(), caller.UserID, chi.URLParam(r, "id"), active)
		if err != nil {
			h.errs.Write(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, NewAccountResponse(acct))
	}
}
