// worker consumes auth events from Kafka and forwards them to the OTLP log pipeline.
// Set KAFKA_BROKERS, KAFKA_TOPIC, KAFKA_GROUP_ID and OTEL_EXPORTER_OTLP_ENDPOINT. Without an
// OTLP endpoint the worker only logs refresh-token reuse reports.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medconsult/backend/internal/config"
	"medconsult/backend/internal/logger"
	"medconsult/backend/internal/telemetry"
	"medconsult/backend/internal/telemetry/consumer"
	telemetryotel "medconsult/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("local", "info")
		log.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel).With().Str("component", "worker").Logger()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		ServiceName: cfg.ServiceName + "-worker",
		Environment: cfg.Env,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	var sink telemetry.EventEmitter
	if cfg.OTelEndpoint != "" {
		sink = telemetryotel.NewEventEmitter(providers.LoggerProvider)
	}

	c := consumer.NewKafkaConsumer(brokers, cfg.KafkaTopic, cfg.KafkaGroupID, sink, log)
	log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Str("group", cfg.KafkaGroupID).Msg("consuming auth events")
	if err := c.Run(ctx); err != nil {
		log.Error().Err(err).Msg("consumer stopped")
	}
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("close kafka reader")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("worker stopped")
}
