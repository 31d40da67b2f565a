package service

import (
	"context"
	"time"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

// OTPController handles code entry, verification and resend for StageOTPChallenge.
// It shares the session and the in-flight slot of its StageController.
type OTPController struct {
	flow *StageController
}

// OnEnter dispatches a fresh OTP to the session's mobile number and, on success, starts the resend
// countdown. A failed dispatch is notified and leaves the countdown at zero so Resend can retry at once.
// The forward transition from SubmitMobileNumber has already dispatched and only starts the countdown;
// OnEnter is used when the challenge is re-entered from biometric confirmation.
func (o *OTPController) OnEnter(ctx context.Context) error {
	c := o.flow
	t, err := c.begin(domain.StageOTPChallenge, func() error {
		c.code = ""
		c.timer.Reset()
		return nil
	})
	if err != nil {
		return c.rejected(ctx, domain.StageOTPChallenge, err)
	}
	return o.dispatch(ctx, t, MsgOTPSent, MsgOTPSendFailed)
}

// SetCode stores the entered code: whitespace is dropped and at most six digits are kept.
// Non-digit input fails with a *domain.ValidationError. No network effect.
func (o *OTPController) SetCode(code string) error {
	normalized, err := domain.NormalizeCode(code)
	if err != nil {
		return err
	}
	c := o.flow
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(domain.StageOTPChallenge); err != nil {
		return err
	}
	c.code = normalized
	return nil
}

// Code returns the entered code.
func (o *OTPController) Code() string {
	c := o.flow
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// ResendWindow returns the ticks left before Resend is permitted.
func (o *OTPController) ResendWindow() int {
	return o.flow.timer.Remaining()
}

// ResendWait returns the time left before Resend is permitted, at the configured tick interval.
func (o *OTPController) ResendWait() time.Duration {
	return time.Duration(o.flow.timer.Remaining()) * o.flow.opts.tickInterval
}

// ResendReady reports whether the resend countdown has reached zero.
func (o *OTPController) ResendReady() bool {
	return o.flow.timer.IsReady()
}

// Verify submits the entered code. A code that is not exactly six digits fails with a
// *domain.ValidationError without a network call. A match moves the flow to biometric confirmation.
// A mismatch returns domain.ErrVerificationMismatch and keeps the code for correction; a transport
// or service failure returns a *domain.ServiceError. Neither changes the stage.
func (o *OTPController) Verify(ctx context.Context) error {
	c := o.flow
	var code string
	t, err := c.begin(domain.StageOTPChallenge, func() error {
		if err := domain.ValidateOTP(c.code); err != nil {
			return err
		}
		code = c.code
		return nil
	})
	if err != nil {
		return c.rejected(ctx, domain.StageOTPChallenge, err)
	}

	res, callErr := c.client.VerifyOTP(ctx, t.mobile, code)

	c.mu.Lock()
	if !c.settleLocked(t) {
		c.mu.Unlock()
		return c.stale(domain.OpVerifyOTP, t)
	}
	if callErr != nil {
		c.mu.Unlock()
		err := &domain.ServiceError{Op: domain.OpVerifyOTP, Err: callErr}
		c.requestFailed(ctx, domain.StageOTPChallenge, t.mobile, domain.OpVerifyOTP, MsgOTPVerifyFailed, err)
		return err
	}
	success := res != nil && res.Success
	out, err := c.handleOTPOutcomeLocked(success)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if !success {
		c.mismatch(ctx, t.mobile)
		c.otpOutcomeApplied(ctx, out)
		return domain.ErrVerificationMismatch
	}

	c.requestSucceeded(ctx, domain.StageOTPChallenge, t.mobile, domain.OpVerifyOTP, MsgOTPVerified)
	c.otpOutcomeApplied(ctx, out)
	return nil
}

// Resend issues a new OTP. It is a silent no-op returning domain.ErrResendNotReady while the
// countdown is above zero, or domain.ErrRequestPending while another request is in flight.
// Otherwise the entered code is cleared and, on success, the countdown restarts from the full window.
func (o *OTPController) Resend(ctx context.Context) error {
	c := o.flow
	t, err := c.begin(domain.StageOTPChallenge, func() error {
		if !c.timer.IsReady() {
			return domain.ErrResendNotReady
		}
		c.code = ""
		return nil
	})
	if err != nil {
		return c.rejected(ctx, domain.StageOTPChallenge, err)
	}
	return o.dispatch(ctx, t, MsgOTPResent, MsgOTPResendFailed)
}

// dispatch runs the resend-OTP call for a reserved ticket and settles it.
func (o *OTPController) dispatch(ctx context.Context, t ticket, okMsg, failMsg string) error {
	c := o.flow
	res, callErr := c.client.ResendOTP(ctx, t.mobile)

	c.mu.Lock()
	if !c.settleLocked(t) {
		c.mu.Unlock()
		return c.stale(domain.OpResendOTP, t)
	}
	if err := serviceOutcome(domain.OpResendOTP, res, callErr); err != nil {
		c.mu.Unlock()
		c.requestFailed(ctx, domain.StageOTPChallenge, t.mobile, domain.OpResendOTP, failMsg, err)
		return err
	}
	c.timer.Start()
	c.mu.Unlock()

	c.requestSucceeded(ctx, domain.StageOTPChallenge, t.mobile, domain.OpResendOTP, okMsg)
	return nil
}

func (c *StageController) mismatch(ctx context.Context, mobile string) {
	c.metrics.request(ctx, domain.OpVerifyOTP, outcomeMismatch)
	c.log.InfoContext(ctx, "otp mismatch", "mobile", domain.MaskMobile(mobile))
	c.notify(ctx, domain.Notification{
		Kind: domain.NotifyError, Message: MsgInvalidOTP,
		Stage: domain.StageOTPChallenge, Err: domain.ErrVerificationMismatch,
	})
	c.emit(ctx, telemetry.EventOTPMismatch, domain.StageOTPChallenge, mobile, outcomeFailure, nil)
	c.auditEvent(ctx, mobile, auditOTPFailed, "mismatch")
}
