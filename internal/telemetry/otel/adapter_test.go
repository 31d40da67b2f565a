package otel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), telemetry.NewFlowEvent(telemetry.EventOTPSent, "flow")); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec   otellog.Record
	count int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.count++
}

func attributes(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := &telemetry.FlowEvent{
		ID:        "evt-1",
		EventType: telemetry.EventStageChanged,
		Source:    "flow",
		Stage:     "otp_challenge",
		Mobile:    "******3210",
		Outcome:   "success",
		Metadata:  json.RawMessage(`{"from":"mobile_entry"}`),
		CreatedAt: created,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec

	if got := rec.Body().AsBytes(); string(got) != `{"from":"mobile_entry"}` {
		t.Errorf("body = %q, want %q", got, event.Metadata)
	}
	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	if rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v, want info", rec.Severity())
	}

	want := map[string]string{
		"event_id": "evt-1", "event_type": "stage_changed", "source": "flow",
		"stage": "otp_challenge", "mobile": "******3210", "outcome": "success",
	}
	attrs := attributes(rec)
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_FailureOutcome_WarnSeverity(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	event := telemetry.NewFlowEvent(telemetry.EventFlowFailure, "flow")
	event.Outcome = "failure"
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if cap.rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want warn", cap.rec.Severity())
	}
}

func TestEmit_EmptyMetadata_NoBodySet(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	event := &telemetry.FlowEvent{EventType: "ping", Source: "test"}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !cap.rec.Body().Empty() {
		t.Error("body should be empty when metadata is nil")
	}
	attrs := attributes(cap.rec)
	if attrs["event_type"] != "ping" || attrs["source"] != "test" {
		t.Errorf("attributes = %v", attrs)
	}
	for _, k := range []string{"stage", "mobile", "outcome", "event_id"} {
		if _, ok := attrs[k]; ok {
			t.Errorf("attr %q should not be set for empty field", k)
		}
	}
}

func TestEmit_ZeroTimestamp_SetsCurrentTime(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	event := &telemetry.FlowEvent{EventType: "test", Source: "test"}
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	after := time.Now().UTC()
	timestamp := cap.rec.Timestamp()
	if timestamp.Before(before) || timestamp.After(after) {
		t.Errorf("timestamp = %v, should be between %v and %v", timestamp, before, after)
	}
}

func TestNewEventEmitterWithLogger_Nil(t *testing.T) {
	em := NewEventEmitterWithLogger(nil)
	if err := em.Emit(context.Background(), &telemetry.FlowEvent{EventType: "x"}); err != nil {
		t.Errorf("Emit: %v", err)
	}
}
