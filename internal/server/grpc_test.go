package server

import (
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	healthhandler "medconsult/backend/internal/health/handler"
)

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

func TestRegisterServices(t *testing.T) {
	tests := []struct {
		name string
		deps GRPCDeps
		want []string
	}{
		{"health registered", GRPCDeps{Health: healthhandler.NewGRPCServer(healthhandler.NewChecker(nil, nil), zerolog.Nop())}, []string{"grpc.health.v1.Health"}},
		{"nil dependencies", GRPCDeps{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &mockServiceRegistrar{}
			RegisterServices(reg, tt.deps)
			if len(reg.services) != len(tt.want) {
				t.Fatalf("registered %v, want %v", reg.services, tt.want)
			}
			for i := range tt.want {
				if reg.services[i] != tt.want[i] {
					t.Errorf("service[%d] = %q, want %q", i, reg.services[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewGRPCServer(t *testing.T) {
	s := NewGRPCServer(GRPCDeps{Health: healthhandler.NewGRPCServer(healthhandler.NewChecker(nil, nil), zerolog.Nop())})
	defer s.Stop()
	if _, ok := s.GetServiceInfo()["grpc.health.v1.Health"]; !ok {
		t.Error("health service should be registered")
	}
}
