package producer

import (
	"context"
	"encoding/json"

	nats "github.com/nats-io/nats.go"

	"medconsult/backend/internal/telemetry/domain"
)

// publisher is the subset of *nats.Conn used by NATSProducer.
type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSProducer publishes events on "<subject>.<event type>", e.g. auth.events.auth.login_failed.
type NATSProducer struct {
	conn    publisher
	subject string
}

// NewNATSProducer connects to url. Returns (nil, nil) when url is empty.
func NewNATSProducer(url, subject, clientName string) (*NATSProducer, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url, nats.Name(clientName), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &NATSProducer{conn: nc, subject: subject}, nil
}

// Emit publishes the event as JSON. Publish is fire-and-forget; ctx is not consulted.
func (p *NATSProducer) Emit(_ context.Context, event *domain.AuthEvent) error {
	if p == nil || p.conn == nil || event == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject+"."+string(event.Type), data)
}

// Close drains pending publishes and closes the connection.
func (p *NATSProducer) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
