package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"medconsult/backend/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops before closing
// producers, so in-flight async emits can finish. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with its own timeout so the caller is not blocked.
// The request context is only used to find the logger; cancelling it does not abort the emit.
// emitter and event may be nil, in which case nothing happens.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *domain.AuthEvent) {
	if emitter == nil || event == nil {
		return
	}
	log := zerolog.Ctx(ctx)
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("telemetry: async emit failed")
		}
	}()
}
