// Package health reports readiness of the reference auth service over HTTP and gRPC.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall ("") status.
const ServiceName = "biopay.auth.v1.AuthService"

// Pinger is used for readiness (e.g. *sql.DB). PingContext is called by Check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is used for readiness (e.g. the OPA login evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker aggregates the readiness probes. Nil probes are skipped.
type Checker struct {
	pinger  Pinger
	policy  PolicyChecker
	timeout time.Duration
}

// NewChecker returns a Checker. pinger is nil when users are kept in memory.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy, timeout: 2 * time.Second}
}

// Check runs every probe and joins their failures.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var errs []error
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("policy: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Server is the grpc.health.v1.Health service, kept in sync with a Checker by Watch.
type Server struct {
	checker *Checker
	hs      *grpchealth.Server

	mu      sync.Mutex
	serving bool
}

// NewServer returns a health server that starts NOT_SERVING until the first Refresh.
func NewServer(checker *Checker) *Server {
	s := &Server{checker: checker, hs: grpchealth.NewServer()}
	s.set(false)
	return s
}

// Register adds the health service to a gRPC server.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s.hs)
}

// Refresh runs the checks once and publishes the result. Returns the check error.
func (s *Server) Refresh(ctx context.Context) error {
	err := s.checker.Check(ctx)
	s.set(err == nil)
	return err
}

// Serving reports the last published status.
func (s *Server) Serving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serving
}

// Watch refreshes every interval until ctx is done, then marks the service NOT_SERVING.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	_ = s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.hs.Shutdown()
			s.set(false)
			return
		case <-t.C:
			_ = s.Refresh(ctx)
		}
	}
}

func (s *Server) set(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.mu.Lock()
	s.serving = serving
	s.mu.Unlock()
	s.hs.SetServingStatus("", status)
	s.hs.SetServingStatus(ServiceName, status)
}
