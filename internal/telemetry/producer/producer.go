// Package producer publishes auth events to message brokers.
package producer

import (
	"context"

	"medconsult/backend/internal/telemetry/domain"
)

// Producer emits auth events to a broker. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call through telemetry.EmitAsync.
	Emit(ctx context.Context, event *domain.AuthEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
