package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"medconsult/backend/internal/platform/httpx"
)

type statusResponse struct {
	Status string `json:"status"`
}

// Liveness reports that the process is up. It never touches dependencies.
func Liveness(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Readiness returns 200 when every dependency responds and 503 otherwise.
func Readiness(c *Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Check(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
			httpx.WriteJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	}
}
