package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HTTPObserver records finished requests, typically Prometheus collectors.
type HTTPObserver interface {
	ObserveHTTP(method, route, status string, elapsed time.Duration)
}

// RequestLogger attaches a request-scoped zerolog logger (with request_id) to the context,
// then logs one line per request and reports it to obs. Must run after chimw.RequestID.
// obs may be nil.
func RequestLogger(base zerolog.Logger, obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := base.With().Str("request_id", chimw.GetReqID(r.Context())).Logger()
			ctx := log.WithContext(r.Context())
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			elapsed := time.Since(start)
			if obs != nil {
				obs.ObserveHTTP(r.Method, route, strconv.Itoa(status), elapsed)
			}
			ev := zerolog.Ctx(ctx).Info()
			if status >= http.StatusInternalServerError {
				ev = zerolog.Ctx(ctx).Error()
			}
			ev.Str("method", r.Method).
				Str("route", route).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", elapsed).
				Msg("http request")
		})
	}
}

// routePattern returns the matched chi route, or "unmatched" so unknown paths do not
// create unbounded metric labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
