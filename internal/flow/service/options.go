package service

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/Krishna101010101010/Bio-pay/internal/audit"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/timer"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

// DefaultResendWindow is the cooldown between OTP dispatches.
const DefaultResendWindow = 30 * time.Second

// Option configures a StageController.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	emitter       telemetry.EventEmitter
	audit         audit.AuditLogger
	onComplete    func(domain.CompletedSession)
	onResendTick  func(remaining int)
	onOTPOutcome  func(success bool)
	resendWindow  time.Duration
	tickInterval  time.Duration
	tickSource    timer.TickSource
	meterProvider metric.MeterProvider
}

func defaultOptions() options {
	return options{
		logger:       slog.Default(),
		resendWindow: DefaultResendWindow,
		tickInterval: time.Second,
	}
}

// WithLogger sets the structured logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEventEmitter sends flow telemetry events to e (best-effort, asynchronous).
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithAuditLogger records OTP, login and abandonment outcomes to a.
func WithAuditLogger(a audit.AuditLogger) Option {
	return func(o *options) { o.audit = a }
}

// WithOnComplete registers the receiver of the flow-completion event. It is called at most once.
func WithOnComplete(fn func(domain.CompletedSession)) Option {
	return func(o *options) { o.onComplete = fn }
}

// WithOnResendTick observes the resend countdown after every decrement.
func WithOnResendTick(fn func(remaining int)) Option {
	return func(o *options) { o.onResendTick = fn }
}

// WithOnOTPOutcome observes every verification outcome the stage controller applies.
func WithOnOTPOutcome(fn func(success bool)) Option {
	return func(o *options) { o.onOTPOutcome = fn }
}

// WithResendWindow sets the resend cooldown. The countdown runs for window / tick interval ticks,
// at least one. Non-positive values are ignored.
func WithResendWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.resendWindow = d
		}
	}
}

// WithTickInterval sets the period of one countdown tick. Defaults to one second.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithTickSource replaces the ticker driving the resend countdown.
func WithTickSource(src timer.TickSource) Option {
	return func(o *options) { o.tickSource = src }
}

// WithMeterProvider sets the provider for flow metrics. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}
