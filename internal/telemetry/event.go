package telemetry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the sign-in flow and the reference auth service.
const (
	EventStageChanged   = "stage_changed"
	EventOTPSent        = "otp_sent"
	EventOTPVerified    = "otp_verified"
	EventOTPMismatch    = "otp_mismatch"
	EventLoginSucceeded = "login_succeeded"
	EventRegistered     = "registered"
	EventFlowCompleted  = "flow_completed"
	EventFlowFailure    = "flow_failure"
	EventFlowAbandoned  = "flow_abandoned"
	EventHTTPRequest    = "http_request"
)

// FlowEvent is one telemetry record. Mobile is always masked before it is set.
type FlowEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Stage     string          `json:"stage,omitempty"`
	Mobile    string          `json:"mobile,omitempty"`
	Outcome   string          `json:"outcome,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewFlowEvent returns an event with a fresh ID and the current UTC time.
func NewFlowEvent(eventType, source string) *FlowEvent {
	return &FlowEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
