// Package handler exposes the reference Authentication Service over JSON/HTTP with chi.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Krishna101010101010/Bio-pay/internal/devauth/service"
	"github.com/Krishna101010101010/Bio-pay/internal/security"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

const maxBodyBytes = 16 << 10

// HealthChecker reports readiness for GET /health.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// WithHealth sets the readiness checker of GET /health. Without one, /health always reports ok.
func WithHealth(h HealthChecker) Option {
	return func(a *API) { a.health = h }
}

// WithEventEmitter emits an http_request event per API call.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(a *API) { a.emitter = e }
}

// WithRequestTimeout bounds the time spent per request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *API) { a.timeout = d }
}

// API serves /api/auth/*, /dev/otp/{mobile} and /health.
type API struct {
	svc     *service.AuthService
	tokens  *security.TokenProvider
	health  HealthChecker
	emitter telemetry.EventEmitter
	log     *slog.Logger
	timeout time.Duration
}

// New returns the API. tokens validates bearer tokens on GET /api/auth/me.
func New(svc *service.AuthService, tokens *security.TokenProvider, opts ...Option) *API {
	a := &API{svc: svc, tokens: tokens, log: slog.Default(), timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns a chi.Router with all routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(clientIP)
	if a.timeout > 0 {
		r.Use(middleware.Timeout(a.timeout))
	}

	r.Get("/health", a.Health)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(a.requestTelemetry)
		r.Post("/resend-otp", a.ResendOTP)
		r.Post("/verify-otp", a.VerifyOTP)
		r.Post("/login", a.Login)
		r.Post("/register", a.Register)
		r.With(a.requireAccessToken).Get("/me", a.Me)
	})

	if a.svc.DevOTPEnabled() {
		r.Get("/dev/otp/{mobile}", a.DevOTP)
	}
	return r
}
