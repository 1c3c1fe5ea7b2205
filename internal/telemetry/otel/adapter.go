package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"medconsult/backend/internal/telemetry"
	"medconsult/backend/internal/telemetry/domain"
)

const instrumentationName = "medconsult/auth"

// recordEmitter is the subset of otellog.Logger used here.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends auth events as OTel log records.
// If provider is nil, returns nil.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return nil
	}
	return NewEventEmitterWithLogger(provider.Logger(instrumentationName))
}

// NewEventEmitterWithLogger wraps any record emitter.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the event to a log record. Reuse detection is raised to WARN.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetTimestamp(event.OccurredAt)
	rec.SetBody(otellog.StringValue(string(event.Type)))
	rec.SetSeverity(otellog.SeverityInfo)
	if event.Type == domain.EventRefreshReuseDetected || event.Type == domain.EventLoginFailed {
		rec.SetSeverity(otellog.SeverityWarn)
	}
	rec.AddAttributes(otellog.String("event_type", string(event.Type)))
	if event.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", event.UserID))
	}
	if event.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", event.SessionID))
	}
	if event.IP != "" {
		rec.AddAttributes(otellog.String("client_ip", event.IP))
	}
	if event.UserAgent != "" {
		rec.AddAttributes(otellog.String("user_agent", event.UserAgent))
	}
	for k, v := range event.Attributes {
		rec.AddAttributes(otellog.String(k, v))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
