package handler

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// GRPCServer implements grpc.health.v1.Health on top of Checker for load balancers and Kubernetes probes.
type GRPCServer struct {
	healthpb.UnimplementedHealthServer
	checker *Checker
	log     zerolog.Logger
}

// NewGRPCServer returns a GRPCServer.
func NewGRPCServer(checker *Checker, log zerolog.Logger) *GRPCServer {
	return &GRPCServer{checker: checker, log: log}
}

// Check reports SERVING when all dependencies are reachable. A failing dependency yields
// NOT_SERVING rather than an RPC error. Only the overall service ("") is known.
func (s *GRPCServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if req.GetService() != "" {
		return nil, status.Error(codes.NotFound, "unknown service")
	}
	if err := s.checker.Check(ctx); err != nil {
		s.log.Warn().Err(err).Msg("grpc health check failed")
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
