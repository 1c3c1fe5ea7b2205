package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"medconsult/backend/internal/apperr"
	"medconsult/backend/internal/platform/httpx"
	"medconsult/backend/internal/platform/ratelimit"
)

// RateLimit limits requests per client IP under the given scope. Limiter failures
// fail open and are logged. A nil limiter disables limiting.
func RateLimit(limiter ratelimit.Limiter, scope string, ew httpx.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), scope+":"+ClientIP(r.Context()))
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				ew.Write(w, r, apperr.New(apperr.KindRateLimited))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
