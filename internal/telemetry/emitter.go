package telemetry

import "context"

// EventEmitter emits flow events (e.g. to Kafka or OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *FlowEvent) error
}

// MultiEmitter fans an event out to every emitter and returns the first error.
type MultiEmitter []EventEmitter

// Emit calls Emit on each non-nil emitter, continuing past failures.
func (m MultiEmitter) Emit(ctx context.Context, event *FlowEvent) error {
	var first error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
