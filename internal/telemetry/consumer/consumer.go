// Package consumer reads auth events back from Kafka and forwards them to a sink, such as
// the OTel log pipeline. It backs cmd/worker.
package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"medconsult/backend/internal/telemetry"
	"medconsult/backend/internal/telemetry/domain"
)

const (
	forwardTimeout   = 10 * time.Second
	readRetryInitial = 200 * time.Millisecond
	readRetryMax     = 30 * time.Second
)

// messageReader is the subset of *kafka.Reader used by Consumer.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer forwards every decoded AuthEvent to sink. Refresh-token reuse is also logged at warn
// level so it shows up without a log backend.
type Consumer struct {
	reader messageReader
	sink   telemetry.EventEmitter
	log    zerolog.Logger
	// retry paces reads after a failure; it is reset by every successful read.
	retry backoff.BackOff
}

// NewKafkaConsumer returns a Consumer in consumer group groupID. Call Close when done.
func NewKafkaConsumer(brokers []string, topic, groupID string, sink telemetry.EventEmitter, log zerolog.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	}), sink, log)
}

func newConsumer(reader messageReader, sink telemetry.EventEmitter, log zerolog.Logger) *Consumer {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = readRetryInitial
	bo.MaxInterval = readRetryMax
	bo.MaxElapsedTime = 0
	return &Consumer{reader: reader, sink: sink, log: log, retry: bo}
}

// Run consumes until ctx is cancelled. Decode and forward failures are logged and skipped.
// Read failures are logged and retried with exponential backoff.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := c.retry.NextBackOff()
			if wait == backoff.Stop {
				wait = readRetryMax
			}
			c.log.Warn().Err(err).Dur("retry_in", wait).Msg("kafka read failed")
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}
		c.retry.Reset()
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var event domain.AuthEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping undecodable event")
		return
	}
	if event.Type == domain.EventRefreshReuseDetected {
		c.log.Warn().
			Str("user_id", event.UserID).
			Str("session_id", event.SessionID).
			Str("ip", event.IP).
			Time("occurred_at", event.OccurredAt).
			Msg("refresh token reuse reported")
	}
	if c.sink == nil {
		return
	}
	fwdCtx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()
	if err := c.sink.Emit(fwdCtx, &event); err != nil {
		c.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("forward event failed")
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
