package httpx

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"medconsult/backend/internal/apperr"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		field   string
	}{
		{"valid", `{"email":"a@x.com","password":"p"}`, false, ""},
		{"empty", ``, true, "body"},
		{"syntax", `{"email":`, true, "body"},
		{"unknown field", `{"email":"a@x.com","admin":true}`, true, "admin"},
		{"wrong type", `{"email":5}`, true, "email"},
		{"trailing", `{"email":"a"}{"email":"b"}`, true, "body"},
		{"too large", `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, true, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var out loginBody
			err := DecodeJSON(httptest.NewRecorder(), r, &out)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("DecodeJSON: %v", err)
				}
				return
			}
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("kind = %s, want VALIDATION_ERROR", apperr.KindOf(err))
			}
			if d := apperr.From(err).Details; len(d) != 1 || d[0].Field != tt.field {
				t.Errorf("details = %+v, want field %q", d, tt.field)
			}
		})
	}
}

func TestErrorWriter_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	ErrorWriter{}.Write(rec, r, apperr.Validation(apperr.FieldError{Field: "email", Message: "is required"}))

	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "VALIDATION_ERROR" || len(body.Error.Details) != 1 || body.Error.Details[0].Field != "email" {
		t.Errorf("body = %+v", body)
	}
}

func TestErrorWriter_Internal(t *testing.T) {
	cause := errors.New("pq: connection refused")
	tests := []struct {
		name   string
		hide   bool
		leaked bool
	}{
		{"development shows cause", false, true},
		{"production hides cause", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorWriter{HideInternal: tt.hide}.Write(rec, httptest.NewRequest("GET", "/", nil), cause)
			if rec.Code != 500 {
				t.Errorf("status = %d, want 500", rec.Code)
			}
			if got := strings.Contains(rec.Body.String(), "connection refused"); got != tt.leaked {
				t.Errorf("body %q leaks cause = %v, want %v", rec.Body.String(), got, tt.leaked)
			}
			if !strings.Contains(rec.Body.String(), `"code":"INTERNAL_ERROR"`) {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestErrorWriter_RateLimitedRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorWriter{}.Write(rec, httptest.NewRequest("GET", "/", nil), apperr.New(apperr.KindRateLimited))
	if rec.Code != 429 || rec.Header().Get("Retry-After") == "" {
		t.Errorf("status = %d, Retry-After = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}
