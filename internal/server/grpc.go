// Package server builds the gRPC server of the reference auth service.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/Krishna101010101010/Bio-pay/internal/health"
)

// Deps holds the services exposed over gRPC.
type Deps struct {
	// Health backs grpc.health.v1.Health. If nil, the health service is not registered.
	Health *health.Server
	// Reflection registers the server reflection service (for grpcurl); keep it off in production.
	Reflection bool
}

// NewGRPCServer returns a server instrumented with otelgrpc and with deps registered.
// Extra options are appended after the defaults.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the configured services with s.
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Health != nil {
		deps.Health.Register(s)
	}
	if deps.Reflection {
		if srv, ok := s.(*grpc.Server); ok {
			reflection.Register(srv)
		}
	}
}
