package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type observation struct {
	method, route, status string
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveHTTP(method, route, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{method, route, status})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, RequestLogger(base, obs))
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Debug().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if len(obs.obs) != 2 {
		t.Fatalf("observations = %d, want 2", len(obs.obs))
	}
	if got := obs.obs[0]; got != (observation{"GET", "/users/{id}", "418"}) {
		t.Errorf("first observation = %+v", got)
	}
	if got := obs.obs[1]; got.route != "unmatched" || got.status != "404" {
		t.Errorf("second observation = %+v", got)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var access map[string]any
	for _, line := range lines {
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("log line %q: %v", line, err)
		}
		if m["message"] == "http request" && m["route"] == "/users/{id}" {
			access = m
		}
	}
	if access == nil {
		t.Fatalf("no access log line in %s", buf.String())
	}
	if id, _ := access["request_id"].(string); id == "" {
		t.Error("access log should carry request_id")
	}
	if access["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want 418", access["status"])
	}
}

func TestRequestLogger_NilObserver(t *testing.T) {
	h := RequestLogger(zerolog.Nop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
