package service

import (
	"context"
	"encoding/json"

	"github.com/Krishna101010101010/Bio-pay/internal/audit"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

// EventSource is the Source of every FlowEvent emitted by the controllers.
const EventSource = "flow"

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeMismatch = "mismatch"
	outcomeStale    = "stale"
)

type auditAction struct {
	action   string
	resource string
}

var (
	auditOTPSent       = auditAction{audit.ActionOTPSent, audit.ResourceOTP}
	auditOTPVerified   = auditAction{audit.ActionOTPVerified, audit.ResourceOTP}
	auditOTPFailed     = auditAction{audit.ActionOTPFailed, audit.ResourceOTP}
	auditLoginSuccess  = auditAction{audit.ActionLoginSuccess, audit.ResourceSession}
	auditLoginFailure  = auditAction{audit.ActionLoginFailure, audit.ResourceSession}
	auditRegister      = auditAction{audit.ActionRegister, audit.ResourceUser}
	auditFlowCompleted = auditAction{audit.ActionFlowCompleted, audit.ResourceSignInFlow}
	auditFlowAbandoned = auditAction{audit.ActionFlowAbandoned, audit.ResourceSignInFlow}
)

// successEvents maps an operation to the telemetry event and audit action of its success.
var successEvents = map[string]struct {
	event string
	audit auditAction
}{
	domain.OpResendOTP: {telemetry.EventOTPSent, auditOTPSent},
	domain.OpVerifyOTP: {telemetry.EventOTPVerified, auditOTPVerified},
	domain.OpLogin:     {telemetry.EventLoginSucceeded, auditLoginSuccess},
	domain.OpRegister:  {telemetry.EventRegistered, auditRegister},
}

func (c *StageController) requestSucceeded(ctx context.Context, stage domain.Stage, mobile, op, msg string) {
	c.metrics.request(ctx, op, outcomeSuccess)
	c.log.InfoContext(ctx, "request succeeded", "op", op, "stage", stage.String(), "mobile", domain.MaskMobile(mobile))
	c.notify(ctx, domain.Notification{Kind: domain.NotifySuccess, Message: msg, Stage: stage})
	if m, ok := successEvents[op]; ok {
		c.emit(ctx, m.event, stage, mobile, outcomeSuccess, map[string]string{"op": op})
		c.auditEvent(ctx, mobile, m.audit, "")
	}
}

func (c *StageController) requestFailed(ctx context.Context, stage domain.Stage, mobile, op, msg string, err error) {
	c.metrics.request(ctx, op, outcomeFailure)
	c.log.WarnContext(ctx, "request failed", "op", op, "stage", stage.String(), "mobile", domain.MaskMobile(mobile), "error", err)
	c.notify(ctx, domain.Notification{Kind: domain.NotifyError, Message: msg, Stage: stage, Err: err})
	c.emit(ctx, telemetry.EventFlowFailure, stage, mobile, outcomeFailure, map[string]string{"op": op, "error": err.Error()})
	switch op {
	case domain.OpLogin:
		c.auditEvent(ctx, mobile, auditLoginFailure, err.Error())
	case domain.OpVerifyOTP:
		c.auditEvent(ctx, mobile, auditOTPFailed, err.Error())
	}
}

func (c *StageController) transitioned(ctx context.Context, mobile string, from, to domain.Stage) {
	c.metrics.transition(ctx, from, to)
	c.log.InfoContext(ctx, "stage changed", "from", from.String(), "to", to.String(), "mobile", domain.MaskMobile(mobile))
	c.emit(ctx, telemetry.EventStageChanged, to, mobile, "", map[string]string{"from": from.String(), "to": to.String()})
}

func (c *StageController) completedFlow(ctx context.Context, mobile string) {
	c.emit(ctx, telemetry.EventFlowCompleted, domain.StageComplete, mobile, outcomeSuccess,
		map[string]string{"verifiedByBiometric": "true"})
	c.auditEvent(ctx, mobile, auditFlowCompleted, "")
}

func (c *StageController) abandoned(ctx context.Context, stage domain.Stage, mobile string) {
	c.log.InfoContext(ctx, "flow abandoned", "stage", stage.String(), "mobile", domain.MaskMobile(mobile))
	c.emit(ctx, telemetry.EventFlowAbandoned, stage, mobile, "", nil)
	c.auditEvent(ctx, mobile, auditFlowAbandoned, stage.String())
}

// emit sends a flow event asynchronously. The mobile number is masked.
func (c *StageController) emit(ctx context.Context, eventType string, stage domain.Stage, mobile, outcome string, meta map[string]string) {
	if c.opts.emitter == nil {
		return
	}
	ev := telemetry.NewFlowEvent(eventType, EventSource)
	ev.Stage = stage.String()
	ev.Mobile = domain.MaskMobile(mobile)
	ev.Outcome = outcome
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			ev.Metadata = raw
		}
	}
	telemetry.EmitAsync(c.opts.emitter, ctx, ev)
}

func (c *StageController) auditEvent(ctx context.Context, mobile string, a auditAction, detail string) {
	if c.opts.audit == nil {
		return
	}
	meta := ""
	if detail != "" {
		if raw, err := json.Marshal(map[string]string{"detail": detail}); err == nil {
			meta = string(raw)
		}
	}
	c.opts.audit.LogEvent(ctx, domain.MaskMobile(mobile), a.action, a.resource, meta)
}
