package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

const instrumentationName = "biopay.flow"

// recordEmitter is the subset of otellog.Logger used by the emitter.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends flow events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(instrumentationName)}
}

// NewEventEmitterWithLogger returns an emitter writing to logger. Used by tests to capture records.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.FlowEvent) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the flow event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.FlowEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	if len(event.Metadata) > 0 {
		rec.SetBody(otellog.BytesValue(event.Metadata))
	}
	if event.Outcome == "failure" {
		rec.SetSeverity(otellog.SeverityWarn)
	} else {
		rec.SetSeverity(otellog.SeverityInfo)
	}
	addString(&rec, "event_id", event.ID)
	addString(&rec, "event_type", event.EventType)
	addString(&rec, "source", event.Source)
	addString(&rec, "stage", event.Stage)
	addString(&rec, "mobile", event.Mobile)
	addString(&rec, "outcome", event.Outcome)
	e.logger.Emit(ctx, rec)
	return nil
}

func addString(rec *otellog.Record, key, value string) {
	if value != "" {
		rec.AddAttributes(otellog.String(key, value))
	}
}
