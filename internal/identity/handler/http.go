// Package handler exposes the auth service over HTTP under /api/v1/auth.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medconsult/backend/internal/apperr"
	"medconsult/backend/internal/identity/service"
	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/platform/ratelimit"
	"medconsult/backend/internal/platform/rbac"
	"medconsult/backend/internal/policy/engine"
	"medconsult/backend/internal/server/middleware"
	userdomain "medconsult/backend/internal/user/domain"
	userhandler "medconsult/backend/internal/user/handler"
)

const (
	// RefreshCookieName holds the refresh token for browser clients.
	RefreshCookieName = "refresh_token"
	// RefreshCookiePath scopes the cookie to the refresh and logout routes.
	RefreshCookiePath = "/api/v1/auth"

	dateLayout = "2006-01-02"
)

// CookieConfig controls the refresh cookie attributes.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	// MaxAge is the refresh token TTL.
	MaxAge time.Duration
}

// AuthHandler serves the public auth routes and the caller's own session management.
type AuthHandler struct {
	auth    *service.AuthService
	authz   engine.Authorizer
	cookie  CookieConfig
	errs    httpx.ErrorWriter
	limiter ratelimit.Limiter
}

// NewAuthHandler returns an AuthHandler. authz gates the caller's own account and session routes.
// limiter may be nil to disable rate limiting.
func NewAuthHandler(auth *service.AuthService, authz engine.Authorizer, cookie CookieConfig, errs httpx.ErrorWriter, limiter ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{auth: auth, authz: authz, cookie: cookie, errs: errs, limiter: limiter}
}

// Routes returns the auth routes relative to RefreshCookiePath. authn must be middleware.Authenticate.
func (h *AuthHandler) Routes(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(middleware.RateLimit(h.limiter, "register", h.errs)).Post("/register", h.handleRegister)
	r.With(middleware.RateLimit(h.limiter, "login", h.errs)).Post("/login", h.handleLogin)
	r.With(middleware.RateLimit(h.limiter, "refresh", h.errs)).Post("/refresh", h.handleRefresh)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.With(rbac.RequirePermission(h.authz, engine.ActionReadOwnProfile, h.errs)).Get("/me", h.handleMe)

		manage := rbac.RequirePermission(h.authz, engine.ActionManageSessions, h.errs)
		r.With(manage).Post("/logout-all", h.handleLogoutAll)
		r.With(manage).Get("/sessions", h.handleSessions)
		r.With(manage).Delete("/sessions/{id}", h.handleRevokeSession)
	})
	return r
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`

	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Phone       string `json:"phone"`

	Specialty         string `json:"specialty"`
	LicenseNumber     string `json:"licenseNumber"`
	Bio               string `json:"bio"`
	YearsOfExperience int    `json:"yearsOfExperience"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string                      `json:"accessToken"`
	RefreshToken string                      `json:"refreshToken"`
	User         userhandler.AccountResponse `json:"user"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type logoutAllResponse struct {
	Message         string `json:"message"`
	RevokedSessions int64  `json:"revokedSessions"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type sessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	res, err := h.auth.Register(r.Context(), in, clientInfo(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.setRefreshCookie(w, res.RefreshToken)
	httpx.WriteJSON(w, http.StatusCreated, newAuthResponse(res))
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.setRefreshCookie(w, res.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, newAuthResponse(res))
}

// handleRefresh reads the refresh token from the cookie only. On any token failure the cookie is cleared.
func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.auth.Refresh(r.Context(), refreshCookie(r), clientInfo(r))
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindInvalidRefreshToken, apperr.KindRefreshTokenExpired, apperr.KindTokenReuseDetected:
			h.clearRefreshCookie(w)
		}
		h.errs.Write(w, r, err)
		return
	}
	h.setRefreshCookie(w, res.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), refreshCookie(r), clientInfo(r)); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	n, err := h.auth.LogoutAll(r.Context(), id.UserID, clientInfo(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	httpx.WriteJSON(w, http.StatusOK, logoutAllResponse{Message: "Logged out from all sessions", RevokedSessions: n})
}

func (h *AuthHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	list, err := h.auth.ListSessions(r.Context(), id.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	out := sessionsResponse{Sessions: make([]sessionResponse, 0, len(list))}
	for _, s := range list {
		out.Sessions = append(out.Sessions, sessionResponse{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			IPAddress: s.IPAddress,
			CreatedAt: s.CreatedAt.UTC(),
			ExpiresAt: s.ExpiresAt.UTC(),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AuthHandler) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	if err := h.auth.RevokeSession(r.Context(), id.UserID, chi.URLParam(r, "id"), clientInfo(r)); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Session revoked"})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	acct, err := h.auth.Me(r.Context(), id.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userhandler.NewAccountResponse(acct))
}

func (req registerRequest) toInput() (service.RegisterInput, error) {
	in := service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	}
	switch userdomain.Role(strings.ToUpper(strings.TrimSpace(req.Role))) {
	case userdomain.RolePatient:
		p := &userdomain.PatientProfile{Gender: req.Gender, Phone: req.Phone}
		if s := strings.TrimSpace(req.DateOfBirth); s != "" {
			dob, err := time.Parse(dateLayout, s)
			if err != nil {
				return in, apperr.Validation(apperr.FieldError{Field: "dateOfBirth", Message: "must be a date in YYYY-MM-DD format"})
			}
			p.DateOfBirth = &dob
		}
		in.Patient = p
	case userdomain.RoleDoctor:
		in.Doctor = &userdomain.DoctorProfile{
			Specialty:         req.Specialty,
			LicenseNumber:     req.LicenseNumber,
			Bio:               req.Bio,
			YearsOfExperience: req.YearsOfExperience,
		}
	}
	return in, nil
}

func newAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         userhandler.NewAccountResponse(res.Account),
	}
}

func clientInfo(r *http.Request) service.ClientInfo {
	ci := middleware.GetClientInfo(r.Context())
	return service.ClientInfo{UserAgent: ci.UserAgent, IPAddress: ci.IP}
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     RefreshCookiePath,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}
