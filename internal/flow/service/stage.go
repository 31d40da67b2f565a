package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/timer"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

// StageController drives the sign-in state machine and owns the canonical session.
//
// Methods are safe for concurrent use. Network calls are made without holding the session lock.
// Each call is tagged with the epoch of the stage that issued it; every transition bumps the epoch,
// so a reply that arrives after the flow moved on is discarded with domain.ErrStaleResponse.
type StageController struct {
	client   AuthClient
	notifier Notifier
	opts     options
	log      *slog.Logger
	metrics  *flowMetrics
	timer    *timer.ResendTimer
	otp      *OTPController

	mu        sync.Mutex
	mobile    string
	stage     domain.Stage
	code      string
	pending   bool
	epoch     uint64
	closed    bool
	completed bool
}

// NewStageController returns a controller in StageMobileEntry. A nil notifier discards notifications.
func NewStageController(client AuthClient, notifier Notifier, opts ...Option) *StageController {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	c := &StageController{
		client:   client,
		notifier: notifier,
		opts:     o,
		log:      o.logger.With("component", "flow"),
		stage:    domain.StageMobileEntry,
	}
	c.metrics = newFlowMetrics(o.meterProvider, c.log)

	topts := []timer.Option{timer.WithInterval(o.tickInterval)}
	if o.tickSource != nil {
		topts = append(topts, timer.WithTickSource(o.tickSource))
	}
	if o.onResendTick != nil {
		topts = append(topts, timer.WithOnTick(o.onResendTick))
	}
	c.timer = timer.New(resendTicks(o.resendWindow, o.tickInterval), topts...)
	c.otp = &OTPController{flow: c}
	return c
}

// resendTicks converts the resend window to a number of countdown ticks, at least one.
func resendTicks(window, interval time.Duration) int {
	n := int(window / interval)
	if n < 1 {
		return 1
	}
	return n
}

// OTP returns the controller for the OTP challenge stage.
func (c *StageController) OTP() *OTPController {
	return c.otp
}

// Session returns a snapshot of the session. ResendWindow is only non-zero in StageOTPChallenge.
func (c *StageController) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := domain.Session{
		MobileNumber:   c.mobile,
		Stage:          c.stage,
		OTPCode:        c.code,
		PendingRequest: c.pending,
	}
	if c.stage == domain.StageOTPChallenge {
		s.ResendWindow = c.timer.Remaining()
	}
	return s
}

// Stage returns the current stage.
func (c *StageController) Stage() domain.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// SubmitMobileNumber validates input and dispatches an OTP to it. On success the number is stored,
// the flow moves to StageOTPChallenge and the resend countdown starts. A malformed number fails with
// a *domain.ValidationError and makes no network call. A service failure leaves the stage unchanged.
func (c *StageController) SubmitMobileNumber(ctx context.Context, input string) error {
	var mobile string
	t, err := c.begin(domain.StageMobileEntry, func() error {
		m, err := domain.ValidateMobile(input)
		mobile = m
		return err
	})
	if err != nil {
		return c.rejected(ctx, domain.StageMobileEntry, err)
	}

	res, callErr := c.client.ResendOTP(ctx, mobile)

	c.mu.Lock()
	if !c.settleLocked(t) {
		c.mu.Unlock()
		return c.stale(domain.OpResendOTP, t)
	}
	if err := serviceOutcome(domain.OpResendOTP, res, callErr); err != nil {
		c.mu.Unlock()
		c.requestFailed(ctx, domain.StageMobileEntry, mobile, domain.OpResendOTP, MsgOTPSendFailed, err)
		return err
	}
	c.mobile = mobile
	from := c.moveLocked(domain.StageOTPChallenge)
	c.timer.Start()
	c.mu.Unlock()

	c.requestSucceeded(ctx, domain.StageMobileEntry, mobile, domain.OpResendOTP, MsgOTPSent)
	c.transitioned(ctx, mobile, from, domain.StageOTPChallenge)
	return nil
}

// HandleOTPOutcome is signalled by the OTP controller when verification completes.
// On success the flow moves to StageBiometricConfirmation; otherwise the stage is unchanged.
func (c *StageController) HandleOTPOutcome(ctx context.Context, success bool) error {
	c.mu.Lock()
	out, err := c.handleOTPOutcomeLocked(success)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.otpOutcomeApplied(ctx, out)
	return nil
}

// otpOutcome is the result of handleOTPOutcomeLocked, reported once the lock is released.
type otpOutcome struct {
	success bool
	mobile  string
	from    domain.Stage
}

// handleOTPOutcomeLocked applies a verification result to the session. It is the only path from
// StageOTPChallenge to StageBiometricConfirmation.
func (c *StageController) handleOTPOutcomeLocked(success bool) (otpOutcome, error) {
	if err := c.checkLocked(domain.StageOTPChallenge); err != nil {
		return otpOutcome{}, err
	}
	out := otpOutcome{success: success, mobile: c.mobile, from: c.stage}
	if success {
		c.moveLocked(domain.StageBiometricConfirmation)
	}
	return out, nil
}

func (c *StageController) otpOutcomeApplied(ctx context.Context, out otpOutcome) {
	if c.opts.onOTPOutcome != nil {
		c.opts.onOTPOutcome(out.success)
	}
	if !out.success {
		c.log.DebugContext(ctx, "otp outcome: mismatch, staying in challenge")
		return
	}
	c.transitioned(ctx, out.mobile, out.from, domain.StageBiometricConfirmation)
}

// CompleteBiometric takes the device's pass/fail signal. On pass it logs in with fingerprint=true;
// a successful login completes the flow and emits the completion event exactly once.
// A failed check or a failed login keeps the flow in StageBiometricConfirmation.
func (c *StageController) CompleteBiometric(ctx context.Context, success bool) error {
	if !success {
		c.mu.Lock()
		err := c.checkLocked(domain.StageBiometricConfirmation)
		mobile := c.mobile
		c.mu.Unlock()
		if err != nil {
			return err
		}
		c.notify(ctx, domain.Notification{
			Kind: domain.NotifyError, Message: MsgBiometricFailed,
			Stage: domain.StageBiometricConfirmation, Err: domain.ErrBiometricFailed,
		})
		c.emit(ctx, telemetry.EventFlowFailure, domain.StageBiometricConfirmation, mobile, outcomeFailure,
			map[string]string{"reason": "biometric"})
		return domain.ErrBiometricFailed
	}

	t, err := c.begin(domain.StageBiometricConfirmation, nil)
	if err != nil {
		return err
	}

	res, callErr := c.client.Login(ctx, t.mobile, true)

	c.mu.Lock()
	if !c.settleLocked(t) {
		c.mu.Unlock()
		return c.stale(domain.OpLogin, t)
	}
	if err := serviceOutcome(domain.OpLogin, res, callErr); err != nil {
		c.mu.Unlock()
		c.requestFailed(ctx, domain.StageBiometricConfirmation, t.mobile, domain.OpLogin, MsgLoginFailed, err)
		return err
	}
	from := c.moveLocked(domain.StageComplete)
	first := !c.completed
	c.completed = true
	done := domain.CompletedSession{
		MobileNumber:        t.mobile,
		VerifiedByBiometric: true,
		AccessToken:         res.AccessToken,
	}
	c.mu.Unlock()

	c.requestSucceeded(ctx, domain.StageBiometricConfirmation, t.mobile, domain.OpLogin, MsgLoginSuccess)
	c.transitioned(ctx, t.mobile, from, domain.StageComplete)
	if first {
		c.completedFlow(ctx, t.mobile)
		if c.opts.onComplete != nil {
			c.opts.onComplete(done)
		}
	}
	return nil
}

// GoBack follows the back edge of the current stage: OTPChallenge to MobileEntry, or
// BiometricConfirmation to OTPChallenge. The entered code and the pending flag are reset and
// in-flight replies become stale. Re-entering the OTP challenge dispatches a fresh OTP; its error,
// if any, is returned after the transition has happened. From any other stage GoBack does nothing.
func (c *StageController) GoBack(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrFlowClosed
	}
	to, ok := c.stage.Previous()
	if !ok {
		c.mu.Unlock()
		return nil
	}
	mobile := c.mobile
	from := c.moveLocked(to)
	if to == domain.StageOTPChallenge {
		c.timer.Reset()
	}
	c.mu.Unlock()

	c.transitioned(ctx, mobile, from, to)
	if to == domain.StageOTPChallenge {
		return c.otp.OnEnter(ctx)
	}
	return nil
}

// Close abandons the flow: the resend countdown is cancelled, in-flight replies are discarded and
// every later operation returns domain.ErrFlowClosed. Close is idempotent.
func (c *StageController) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.epoch++
	c.pending = false
	c.timer.Cancel()
	stage, mobile := c.stage, c.mobile
	c.mu.Unlock()

	if stage != domain.StageComplete {
		c.abandoned(context.Background(), stage, mobile)
	}
	return nil
}

// ticket identifies one in-flight request.
type ticket struct {
	epoch  uint64
	stage  domain.Stage
	mobile string
}

// begin reserves the single in-flight request slot for stage want. admit, if set, runs under the
// session lock after the generic checks and may reject the request or prepare the session for it.
func (c *StageController) begin(want domain.Stage, admit func() error) (ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(want); err != nil {
		return ticket{}, err
	}
	if c.pending {
		return ticket{}, domain.ErrRequestPending
	}
	if admit != nil {
		if err := admit(); err != nil {
			return ticket{}, err
		}
	}
	c.pending = true
	return ticket{epoch: c.epoch, stage: c.stage, mobile: c.mobile}, nil
}

func (c *StageController) checkLocked(want domain.Stage) error {
	if c.closed {
		return domain.ErrFlowClosed
	}
	if c.stage != want {
		return domain.ErrStageMismatch
	}
	return nil
}

// settleLocked releases the request slot of t. It reports false when the session moved on since t
// was issued; the slot then belongs to the new epoch and is left alone.
func (c *StageController) settleLocked(t ticket) bool {
	if t.epoch != c.epoch {
		return false
	}
	c.pending = false
	return true
}

// moveLocked applies a transition and returns the stage it left. Entering a stage invalidates
// in-flight requests and clears the entered code; leaving the OTP challenge stops the countdown.
func (c *StageController) moveLocked(to domain.Stage) domain.Stage {
	from := c.stage
	c.stage = to
	c.epoch++
	c.pending = false
	c.code = ""
	if from == domain.StageOTPChallenge && to != domain.StageOTPChallenge {
		c.timer.Cancel()
	}
	return from
}

// rejected reports a request that never left the process. Only validation failures are
// notified; flow-control rejections (pending, not ready, wrong stage, closed) are silent no-ops.
func (c *StageController) rejected(ctx context.Context, stage domain.Stage, err error) error {
	if errors.Is(err, domain.ErrValidation) {
		c.notify(ctx, domain.Notification{
			Kind: domain.NotifyError, Message: validationMessage(err), Stage: stage, Err: err,
		})
	} else {
		c.log.DebugContext(ctx, "request not issued", "stage", stage.String(), "error", err)
	}
	return err
}

func (c *StageController) stale(op string, t ticket) error {
	c.log.Info("discarding stale response", "op", op, "stage", t.stage.String(), "mobile", domain.MaskMobile(t.mobile))
	c.metrics.request(context.Background(), op, outcomeStale)
	return domain.ErrStaleResponse
}

func (c *StageController) notify(ctx context.Context, n domain.Notification) {
	c.metrics.notification(ctx, n.Kind)
	c.notifier.Notify(ctx, n)
}

// serviceOutcome converts a client reply into an error for operations where success=false is a refusal.
func serviceOutcome(op string, res *Result, err error) error {
	if err != nil {
		return &domain.ServiceError{Op: op, Err: err}
	}
	if res == nil || !res.Success {
		return &domain.ServiceError{Op: op, Err: refusal(res)}
	}
	return nil
}

func refusal(res *Result) error {
	if res != nil && res.Message != "" {
		return fmt.Errorf("%w: %s", domain.ErrRejected, res.Message)
	}
	return domain.ErrRejected
}
