// Package telemetry carries auth security events to the configured sinks.
package telemetry

import (
	"context"
	"errors"

	"medconsult/backend/internal/telemetry/domain"
)

// EventEmitter emits auth events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AuthEvent) error
}

// MultiEmitter fans an event out to every non-nil emitter and joins their errors.
type MultiEmitter []EventEmitter

// NewMultiEmitter drops nil emitters. It returns nil when none remain.
func NewMultiEmitter(emitters ...EventEmitter) EventEmitter {
	var m MultiEmitter
	for _, e := range emitters {
		if e != nil {
			m = append(m, e)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Emit sends event to every emitter, even when an earlier one fails.
func (m MultiEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
