// Package rbac checks the caller's role against the policy engine before protected handlers run.
package rbac

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"medconsult/backend/internal/apperr"
	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/policy/engine"
	"medconsult/backend/internal/server/middleware"
)

// Authorize ensures the caller is authenticated and that its role may perform action.
// Returns the caller identity on success; Unauthorized, Forbidden or Internal on failure.
func Authorize(ctx context.Context, authz engine.Authorizer, action engine.Action) (middleware.Identity, error) {
	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		return middleware.Identity{}, apperr.New(apperr.KindUnauthorized)
	}
	allowed, err := authz.Allow(ctx, id.Role, action)
	if err != nil {
		return middleware.Identity{}, apperr.Internal(err)
	}
	if !allowed {
		zerolog.Ctx(ctx).Info().Str("user_id", id.UserID).Str("role", id.Role).Str("action", string(action)).Msg("permission denied")
		return middleware.Identity{}, apperr.New(apperr.KindForbidden)
	}
	return id, nil
}

// RequirePermission is middleware around Authorize. It must run after middleware.Authenticate.
func RequirePermission(authz engine.Authorizer, action engine.Action, ew httpx.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := Authorize(r.Context(), authz, action); err != nil {
				ew.Write(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
