// Package otel builds the OpenTelemetry providers for the auth service. Traces, metrics and
// auth event log records share one OTLP gRPC collector endpoint.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Config selects where and how telemetry is exported.
type Config struct {
	// Endpoint is the collector address, with or without scheme. Empty disables export.
	Endpoint string
	// Insecure forces plaintext gRPC even for https endpoints.
	Insecure    bool
	ServiceName string
	Environment string
}

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// NewProviders creates providers that export via OTLP to cfg.Endpoint.
// With an empty endpoint it returns unexported providers and a no-op Shutdown.
// Only host:port of the endpoint is used; https implies TLS unless cfg.Insecure is set.
func NewProviders(ctx context.Context, cfg Config) (*Providers, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(),
			MeterProvider:  metric.NewMeterProvider(),
			LoggerProvider: sdklog.NewLoggerProvider(),
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}

	target, plaintext, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	ex := exportTarget{addr: target, insecure: plaintext || cfg.Insecure}

	res, err := serviceResource(cfg)
	if err != nil {
		return nil, err
	}

	var stack shutdownStack
	tp, err := newTracerProvider(ctx, ex, res)
	if err != nil {
		return nil, err
	}
	stack.push(tp.Shutdown)

	mp, err := newMeterProvider(ctx, ex, res)
	if err != nil {
		_ = stack.shutdown(ctx)
		return nil, err
	}
	stack.push(mp.Shutdown)

	lp, err := newLoggerProvider(ctx, ex, res)
	if err != nil {
		_ = stack.shutdown(ctx)
		return nil, err
	}
	stack.push(lp.Shutdown)

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Shutdown:       stack.shutdown,
	}, nil
}

const metricExportInterval = 15 * time.Second

type exportTarget struct {
	addr     string
	insecure bool
}

// shutdownStack runs shutdown funcs in reverse registration order and joins their errors.
type shutdownStack []func(context.Context) error

func (s *shutdownStack) push(fn func(context.Context) error) { *s = append(*s, fn) }

func (s shutdownStack) shutdown(ctx context.Context) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func serviceResource(cfg Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.DeploymentEnvironmentNameKey.String(cfg.Environment),
		),
	)
}

func newTracerProvider(ctx context.Context, ex exportTarget, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(ex.addr)}
	if ex.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel: trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res)), nil
}

func newMeterProvider(ctx context.Context, ex exportTarget, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(ex.addr)}
	if ex.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel: metric exporter: %w", err)
	}
	reader := metric.NewPeriodicReader(exp, metric.WithInterval(metricExportInterval))
	return metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)), nil
}

func newLoggerProvider(ctx context.Context, ex exportTarget, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(ex.addr)}
	if ex.insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel: log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)), sdklog.WithResource(res)), nil
}

// parseEndpoint returns the gRPC dial target (host:port) and whether the scheme implies plaintext.
func parseEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("otel: invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("otel: invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "https", nil
}

// SetGlobal installs the tracer and meter providers globally, along with W3C trace context
// propagation, so instrumentation (HTTP middleware, otelgrpc) picks them up.
// The LoggerProvider is passed explicitly to the event emitter instead.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
}
