package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
)

const meterName = "github.com/Krishna101010101010/Bio-pay/internal/flow/service"

type flowMetrics struct {
	transitions   metric.Int64Counter
	requests      metric.Int64Counter
	notifications metric.Int64Counter
}

func newFlowMetrics(mp metric.MeterProvider, logger *slog.Logger) *flowMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &flowMetrics{}
	var err error
	if m.transitions, err = meter.Int64Counter("biopay.flow.transitions",
		metric.WithDescription("Stage transitions of the sign-in flow")); err != nil {
		logger.Warn("flow: transitions counter", "error", err)
		m.transitions = noop.Int64Counter{}
	}
	if m.requests, err = meter.Int64Counter("biopay.flow.requests",
		metric.WithDescription("Authentication Service calls completed by the flow")); err != nil {
		logger.Warn("flow: requests counter", "error", err)
		m.requests = noop.Int64Counter{}
	}
	if m.notifications, err = meter.Int64Counter("biopay.flow.notifications",
		metric.WithDescription("Notifications delivered to the user")); err != nil {
		logger.Warn("flow: notifications counter", "error", err)
		m.notifications = noop.Int64Counter{}
	}
	return m
}

func (m *flowMetrics) transition(ctx context.Context, from, to domain.Stage) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

func (m *flowMetrics) request(ctx context.Context, op, outcome string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func (m *flowMetrics) notification(ctx context.Context, kind domain.NotificationKind) {
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}
