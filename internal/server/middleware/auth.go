package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"medconsult/backend/internal/apperr"
	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/security"
)

const bearerPrefix = "bearer "

// Authenticate requires a valid Bearer access token and stores the caller's Identity.
// Refresh tokens are rejected because they are signed with a different secret.
func Authenticate(tokens *security.TokenProvider, ew httpx.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				ew.Write(w, r, apperr.New(apperr.KindUnauthorized))
				return
			}
			payload, err := tokens.VerifyAccess(token)
			if err != nil {
				ew.Write(w, r, apperr.New(apperr.KindUnauthorized))
				return
			}
			ctx := WithIdentity(r.Context(), Identity{UserID: payload.ID, Email: payload.Email, Role: payload.Role})
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", payload.ID)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
