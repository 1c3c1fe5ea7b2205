package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"medconsult/backend/internal/telemetry/domain"
)

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec   otellog.Record
	calls int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.calls++
}

func TestNewEventEmitter_NilProvider(t *testing.T) {
	if NewEventEmitter(nil) != nil {
		t.Error("NewEventEmitter(nil) should return nil")
	}
}

func TestNewEventEmitter_Provider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventLoggedOut}); err != nil {
		t.Errorf("Emit: %v", err)
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(nil): %v", err)
	}
}

func TestEmit_AttributeMapping(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	event := &domain.AuthEvent{
		Type:       domain.EventRefreshReuseDetected,
		UserID:     "user1",
		SessionID:  "sess1",
		IP:         "10.1.1.1",
		UserAgent:  "curl/8",
		Attributes: map[string]string{"revoked_sessions": "3"},
		OccurredAt: at,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if capture.calls != 1 {
		t.Fatalf("calls = %d, want 1", capture.calls)
	}
	if !capture.rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", capture.rec.Timestamp(), at)
	}
	if capture.rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want WARN", capture.rec.Severity())
	}
	if capture.rec.Body().AsString() != string(domain.EventRefreshReuseDetected) {
		t.Errorf("body = %q", capture.rec.Body().AsString())
	}
	attrs := map[string]string{}
	capture.rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"event_type":       string(domain.EventRefreshReuseDetected),
		"user_id":          "user1",
		"session_id":       "sess1",
		"client_ip":        "10.1.1.1",
		"user_agent":       "curl/8",
		"revoked_sessions": "3",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %s = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_InfoSeverity(t *testing.T) {
	capture := &recordCapture{}
	_ = NewEventEmitterWithLogger(capture).Emit(context.Background(), &domain.AuthEvent{Type: domain.EventLoginSucceeded})
	if capture.rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v, want INFO", capture.rec.Severity())
	}
}
