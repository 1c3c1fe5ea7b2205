// Package server assembles the HTTP router and the gRPC server.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"medconsult/backend/internal/apperr"
	audithandler "medconsult/backend/internal/audit/handler"
	healthhandler "medconsult/backend/internal/health/handler"
	identityhandler "medconsult/backend/internal/identity/handler"
	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/security"
	"medconsult/backend/internal/server/middleware"
	"medconsult/backend/internal/telemetry/metrics"
	userhandler "medconsult/backend/internal/user/handler"
)

// Deps holds the handlers and shared infrastructure mounted by NewRouter.
type Deps struct {
	Log    zerolog.Logger
	Errors httpx.ErrorWriter
	// Tokens verifies Bearer access tokens on protected routes.
	Tokens *security.TokenProvider
	// Auth serves /api/v1/auth. Required.
	Auth *identityhandler.AuthHandler
	// Admin serves /api/v1/admin/users. If nil, the routes are not mounted.
	Admin *userhandler.AdminHandler
	// Audit serves /api/v1/admin/audit-logs. If nil, the route is not mounted.
	Audit *audithandler.Handler
	// Health backs /readyz. If nil, readiness always succeeds.
	Health *healthhandler.Checker
	// Metrics records HTTP metrics and serves /metrics. If nil, both are skipped.
	Metrics *metrics.Registry
	// TrustProxy takes the client IP from forwarding headers instead of the peer address.
	TrustProxy bool
	// TracerProvider creates request spans. If nil, the global provider is used.
	TracerProvider trace.TracerProvider
}

// NewRouter returns the application handler.
//
// Routes:
//   - GET  /healthz, /readyz, /metrics
//   - /api/v1/auth/*             → internal/identity/handler
//   - /api/v1/admin/users/*      → internal/user/handler
//   - /api/v1/admin/audit-logs   → internal/audit/handler
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	var obs middleware.HTTPObserver
	if deps.Metrics != nil {
		obs = deps.Metrics
	}
	r.Use(
		chimw.RequestID,
		middleware.RequestLogger(deps.Log, obs),
		middleware.Tracing(deps.TracerProvider),
		middleware.ClientInfoMiddleware(deps.TrustProxy),
		chimw.Recoverer,
	)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		deps.Errors.Write(w, req, apperr.New(apperr.KindNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		deps.Errors.Write(w, req, apperr.New(apperr.KindMethodNotAllowed))
	})

	health := deps.Health
	if health == nil {
		health = healthhandler.NewChecker(nil, nil)
	}
	r.Get("/healthz", healthhandler.Liveness)
	r.Get("/readyz", healthhandler.Readiness(health))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	authn := middleware.Authenticate(deps.Tokens, deps.Errors)
	r.Mount(identityhandler.RefreshCookiePath, deps.Auth.Routes(authn))
	if deps.Admin != nil {
		r.Mount("/api/v1/admin/users", deps.Admin.Routes(authn))
	}
	if deps.Audit != nil {
		r.Mount("/api/v1/admin/audit-logs", deps.Audit.Routes(authn))
	}
	return r
}
