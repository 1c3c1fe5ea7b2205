package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "medconsult/backend/internal/health/handler"
)

// GRPCDeps holds the services exposed on GRPC_ADDR.
type GRPCDeps struct {
	// Health backs grpc.health.v1.Health. If nil, the service is not registered.
	Health *healthhandler.GRPCServer
}

// RegisterServices registers the gRPC services with s.
func RegisterServices(s grpc.ServiceRegistrar, deps GRPCDeps) {
	if deps.Health != nil {
		healthpb.RegisterHealthServer(s, deps.Health)
	}
}

// NewGRPCServer returns a gRPC server instrumented with OpenTelemetry through the global providers.
func NewGRPCServer(deps GRPCDeps, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}
