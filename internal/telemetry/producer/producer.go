// Package producer defines the interface for publishing flow events to a broker (e.g. Kafka).
package producer

import (
	"context"

	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

// Producer publishes flow events. Callers use it best-effort: log and ignore errors.
// A Producer is also a telemetry.EventEmitter.
type Producer interface {
	// Emit sends a single flow event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *telemetry.FlowEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
