// Package httpx holds the JSON request and response helpers shared by HTTP handlers and middleware.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"medconsult/backend/internal/apperr"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the stable code and a human message.
type ErrorDetail struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// WriteJSON writes payload with status as application/json.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorWriter renders errors. With HideInternal set, INTERNAL_ERROR bodies carry only the default message.
type ErrorWriter struct {
	HideInternal bool
}

// Write maps err to its status and envelope. Internal errors are logged with their cause
// through the request logger.
func (ew ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.From(err)
	msg := ae.Message
	if ae.Kind == apperr.KindInternal {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("internal error")
		if !ew.HideInternal && ae.Err != nil {
			msg = ae.Err.Error()
		}
	}
	if ae.Kind == apperr.KindRateLimited {
		if h := w.Header().Get("Retry-After"); h == "" {
			w.Header().Set("Retry-After", "60")
		}
	}
	WriteJSON(w, ae.Kind.Status(), ErrorBody{Error: ErrorDetail{
		Message: msg,
		Code:    ae.Kind.Code(),
		Details: ae.Details,
	}})
}

// DecodeJSON decodes a single JSON object from the body into out. Unknown fields,
// trailing data and bodies over MaxBodyBytes are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "must contain a single JSON object"})
	}
	return nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "is required"})
	case errors.As(err, &maxErr):
		return apperr.Validation(apperr.FieldError{Field: "body", Message: fmt.Sprintf("must be at most %d bytes", maxErr.Limit)})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "is not valid JSON"})
	case errors.As(err, &typeErr):
		return apperr.Validation(apperr.FieldError{Field: typeErr.Field, Message: "has the wrong type"})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apperr.Validation(apperr.FieldError{Field: field, Message: "is not allowed"})
	}
	return apperr.Validation(apperr.FieldError{Field: "body", Message: "is invalid"})
}
