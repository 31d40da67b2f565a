package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna101010101010/Bio-pay/internal/audit"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

func TestNewStageController_InitialSession(t *testing.T) {
	c, _ := newTestController(&fakeClient{})
	s := c.Session()
	assert.Equal(t, domain.StageMobileEntry, s.Stage)
	assert.Empty(t, s.MobileNumber)
	assert.Empty(t, s.OTPCode)
	assert.Zero(t, s.ResendWindow)
	assert.False(t, s.PendingRequest)
}

func TestSubmitMobileNumber_InvalidInput_NoNetworkCall(t *testing.T) {
	for _, in := range []string{"1234567890", "", "98765", "5876543210", "98765432100", "98765abcde",
		" 9876543210\t", "9876543210 ", "\t9876543210"} {
		t.Run(in, func(t *testing.T) {
			client := &fakeClient{}
			c, rec := newTestController(client)

			err := c.SubmitMobileNumber(context.Background(), in)

			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, client.total(), "no network call expected")
			assert.Equal(t, domain.StageMobileEntry, c.Stage())
			assert.False(t, c.Session().PendingRequest)
			n := rec.last(t)
			assert.Equal(t, domain.NotifyError, n.Kind)
			assert.Equal(t, MsgInvalidMobile, n.Message)
		})
	}
}

func TestSubmitMobileNumber_Success(t *testing.T) {
	client := &fakeClient{}
	c, rec := newTestController(client)

	require.NoError(t, c.SubmitMobileNumber(context.Background(), testMobile))

	s := c.Session()
	assert.Equal(t, domain.StageOTPChallenge, s.Stage)
	assert.Equal(t, testMobile, s.MobileNumber)
	assert.Equal(t, 30, s.ResendWindow)
	assert.False(t, s.PendingRequest)
	assert.True(t, c.timer.Running())
	assert.Equal(t, 1, client.count(domain.OpResendOTP))
	n := rec.last(t)
	assert.Equal(t, domain.NotifySuccess, n.Kind)
	assert.Equal(t, MsgOTPSent, n.Message)
}

func TestSubmitMobileNumber_ServiceFailure_Recoverable(t *testing.T) {
	cause := errors.New("connection refused")
	client := &fakeClient{resend: func(context.Context, string) (*Result, error) { return nil, cause }}
	c, rec := newTestController(client)

	err := c.SubmitMobileNumber(context.Background(), testMobile)

	require.ErrorIs(t, err, domain.ErrService)
	require.ErrorIs(t, err, cause)
	var se *domain.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.OpResendOTP, se.Op)
	assert.Equal(t, domain.StageMobileEntry, c.Stage())
	assert.Empty(t, c.Session().MobileNumber)
	assert.False(t, c.Session().PendingRequest)
	assert.Equal(t, MsgOTPSendFailed, rec.last(t).Message)

	client.resend = nil
	require.NoError(t, c.SubmitMobileNumber(context.Background(), testMobile))
	assert.Equal(t, domain.StageOTPChallenge, c.Stage())
}

func TestSubmitMobileNumber_Refused(t *testing.T) {
	client := &fakeClient{resend: func(context.Context, string) (*Result, error) {
		return &Result{Success: false, Message: "blocked"}, nil
	}}
	c, _ := newTestController(client)

	err := c.SubmitMobileNumber(context.Background(), testMobile)

	require.ErrorIs(t, err, domain.ErrService)
	require.ErrorIs(t, err, domain.ErrRejected)
	assert.Contains(t, err.Error(), "blocked")
	assert.Equal(t, domain.StageMobileEntry, c.Stage())
}

func TestSubmitMobileNumber_WrongStage(t *testing.T) {
	client := &fakeClient{}
	c, _ := newTestController(client)
	toOTPChallenge(t, c)

	err := c.SubmitMobileNumber(context.Background(), testMobile)

	require.ErrorIs(t, err, domain.ErrStageMismatch)
	assert.Equal(t, 1, client.count(domain.OpResendOTP))
}

func TestSubmitMobileNumber_DuplicateWhilePending(t *testing.T) {
	g := newGate()
	client := &fakeClient{resend: func(context.Context, string) (*Result, error) {
		g.wait()
		return &Result{Success: true}, nil
	}}
	c, _ := newTestController(client)

	done := make(chan error, 1)
	go func() { done <- c.SubmitMobileNumber(context.Background(), testMobile) }()
	g.awaitStart(t)

	assert.True(t, c.Session().PendingRequest)
	require.ErrorIs(t, c.SubmitMobileNumber(context.Background(), testMobile), domain.ErrRequestPending)

	close(g.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, client.count(domain.OpResendOTP))
	assert.False(t, c.Session().PendingRequest)
}

func TestHandleOTPOutcome(t *testing.T) {
	c, _ := newTestController(&fakeClient{})
	require.ErrorIs(t, c.HandleOTPOutcome(context.Background(), true), domain.ErrStageMismatch)

	toOTPChallenge(t, c)
	require.NoError(t, c.HandleOTPOutcome(context.Background(), false))
	assert.Equal(t, domain.StageOTPChallenge, c.Stage())

	require.NoError(t, c.HandleOTPOutcome(context.Background(), true))
	assert.Equal(t, domain.StageBiometricConfirmation, c.Stage())
	assert.False(t, c.timer.Running())
}

func TestCompleteBiometric_Success_EmitsCompletionOnce(t *testing.T) {
	var completed []domain.CompletedSession
	client := &fakeClient{}
	c, rec := newTestController(client, WithOnComplete(func(s domain.CompletedSession) {
		completed = append(completed, s)
	}))
	toBiometric(t, c)

	require.NoError(t, c.CompleteBiometric(context.Background(), true))

	assert.Equal(t, domain.StageComplete, c.Stage())
	require.Len(t, completed, 1)
	assert.Equal(t, domain.CompletedSession{MobileNumber: testMobile, VerifiedByBiometric: true, AccessToken: "token-1"}, completed[0])
	assert.Equal(t, MsgLoginSuccess, rec.last(t).Message)

	require.ErrorIs(t, c.CompleteBiometric(context.Background(), true), domain.ErrStageMismatch)
	require.NoError(t, c.GoBack(context.Background()))
	assert.Equal(t, domain.StageComplete, c.Stage())
	assert.Len(t, completed, 1)
	assert.Equal(t, 1, client.count(domain.OpLogin))
}

func TestCompleteBiometric_LoginSendsFingerprint(t *testing.T) {
	var gotMobile string
	var gotFingerprint bool
	client := &fakeClient{login: func(_ context.Context, mobile string, fp bool) (*Result, error) {
		gotMobile, gotFingerprint = mobile, fp
		return &Result{Success: true}, nil
	}}
	c, _ := newTestController(client)
	toBiometric(t, c)

	require.NoError(t, c.CompleteBiometric(context.Background(), true))
	assert.Equal(t, testMobile, gotMobile)
	assert.True(t, gotFingerprint)
}

func TestCompleteBiometric_LoginFailure_StaysAndRetries(t *testing.T) {
	fail := true
	client := &fakeClient{login: func(context.Context, string, bool) (*Result, error) {
		if fail {
			return nil, errors.New("503")
		}
		return &Result{Success: true}, nil
	}}
	c, rec := newTestController(client)
	toBiometric(t, c)

	err := c.CompleteBiometric(context.Background(), true)
	require.ErrorIs(t, err, domain.ErrService)
	assert.Equal(t, domain.StageBiometricConfirmation, c.Stage())
	assert.False(t, c.Session().PendingRequest)
	n := rec.last(t)
	assert.Equal(t, domain.NotifyError, n.Kind)
	assert.Equal(t, MsgLoginFailed, n.Message)

	fail = false
	require.NoError(t, c.CompleteBiometric(context.Background(), true))
	assert.Equal(t, domain.StageComplete, c.Stage())
}

func TestCompleteBiometric_LoginRefused(t *testing.T) {
	client := &fakeClient{login: func(context.Context, string, bool) (*Result, error) {
		return &Result{Success: false}, nil
	}}
	c, _ := newTestController(client)
	toBiometric(t, c)

	err := c.CompleteBiometric(context.Background(), true)
	require.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, domain.StageBiometricConfirmation, c.Stage())
}

func TestCompleteBiometric_SensorFailure_NoLogin(t *testing.T) {
	client := &fakeClient{}
	c, rec := newTestController(client)
	toBiometric(t, c)

	require.ErrorIs(t, c.CompleteBiometric(context.Background(), false), domain.ErrBiometricFailed)
	assert.Equal(t, domain.StageBiometricConfirmation, c.Stage())
	assert.Zero(t, client.count(domain.OpLogin))
	assert.Equal(t, MsgBiometricFailed, rec.last(t).Message)
}

func TestCompleteBiometric_WrongStage(t *testing.T) {
	client := &fakeClient{}
	c, _ := newTestController(client)
	require.ErrorIs(t, c.CompleteBiometric(context.Background(), true), domain.ErrStageMismatch)
	require.ErrorIs(t, c.CompleteBiometric(context.Background(), false), domain.ErrStageMismatch)
	toOTPChallenge(t, c)
	require.ErrorIs(t, c.CompleteBiometric(context.Background(), true), domain.ErrStageMismatch)
	assert.Zero(t, client.count(domain.OpLogin))
}

func TestGoBack_FromMobileEntry_NoOp(t *testing.T) {
	c, rec := newTestController(&fakeClient{})
	require.NoError(t, c.GoBack(context.Background()))
	assert.Equal(t, domain.StageMobileEntry, c.Stage())
	assert.Empty(t, rec.all())
}

func TestGoBack_FromOTPChallenge(t *testing.T) {
	c, _ := newTestController(&fakeClient{})
	toOTPChallenge(t, c)
	require.NoError(t, c.OTP().SetCode("123"))

	require.NoError(t, c.GoBack(context.Background()))

	s := c.Session()
	assert.Equal(t, domain.StageMobileEntry, s.Stage)
	assert.Empty(t, s.OTPCode)
	assert.False(t, s.PendingRequest)
	assert.False(t, c.timer.Running())
}

func TestGoBack_FromBiometric_DispatchesFreshOTP(t *testing.T) {
	client := &fakeClient{}
	c, rec := newTestController(client)
	toBiometric(t, c)

	require.NoError(t, c.GoBack(context.Background()))

	s := c.Session()
	assert.Equal(t, domain.StageOTPChallenge, s.Stage)
	assert.Empty(t, s.OTPCode)
	assert.Equal(t, 30, s.ResendWindow)
	assert.Equal(t, 2, client.count(domain.OpResendOTP))
	assert.Equal(t, MsgOTPSent, rec.last(t).Message)
}

func TestGoBack_FromBiometric_DispatchFailureAllowsResend(t *testing.T) {
	client := &fakeClient{}
	c, rec := newTestController(client)
	toBiometric(t, c)

	client.resend = func(context.Context, string) (*Result, error) { return nil, errors.New("down") }
	err := c.GoBack(context.Background())

	require.ErrorIs(t, err, domain.ErrService)
	assert.Equal(t, domain.StageOTPChallenge, c.Stage())
	assert.Equal(t, MsgOTPSendFailed, rec.last(t).Message)
	assert.True(t, c.OTP().ResendReady())

	client.resend = nil
	require.NoError(t, c.OTP().Resend(context.Background()))
	assert.Equal(t, 30, c.Session().ResendWindow)
}

func TestStaleResponse_DiscardedAfterGoBack(t *testing.T) {
	g := newGate()
	client := &fakeClient{verify: func(context.Context, string, string) (*Result, error) {
		g.wait()
		return &Result{Success: true}, nil
	}}
	c, rec := newTestController(client)
	toOTPChallenge(t, c)
	require.NoError(t, c.OTP().SetCode("123456"))

	done := make(chan error, 1)
	go func() { done <- c.OTP().Verify(context.Background()) }()
	g.awaitStart(t)

	require.NoError(t, c.GoBack(context.Background()))
	before := len(rec.all())
	close(g.release)

	require.ErrorIs(t, <-done, domain.ErrStaleResponse)
	s := c.Session()
	assert.Equal(t, domain.StageMobileEntry, s.Stage)
	assert.False(t, s.PendingRequest)
	assert.Len(t, rec.all(), before, "stale reply must not notify")
}

func TestClose_AbandonsFlow(t *testing.T) {
	emitter := newCaptureEmitter()
	auditLog := &fakeAudit{}
	g := newGate()
	client := &fakeClient{}
	c, _ := newTestController(client, WithEventEmitter(emitter), WithAuditLogger(auditLog))
	toOTPChallenge(t, c)
	require.NoError(t, c.OTP().SetCode("123456"))
	client.verify = func(context.Context, string, string) (*Result, error) {
		g.wait()
		return &Result{Success: true}, nil
	}

	done := make(chan error, 1)
	go func() { done <- c.OTP().Verify(context.Background()) }()
	g.awaitStart(t)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.timer.Running())
	close(g.release)
	require.ErrorIs(t, <-done, domain.ErrStaleResponse)

	assert.Equal(t, domain.StageOTPChallenge, c.Stage())
	assert.False(t, c.Session().PendingRequest)
	require.ErrorIs(t, c.SubmitMobileNumber(context.Background(), testMobile), domain.ErrFlowClosed)
	require.ErrorIs(t, c.OTP().Verify(context.Background()), domain.ErrFlowClosed)
	require.ErrorIs(t, c.OTP().Resend(context.Background()), domain.ErrFlowClosed)
	require.ErrorIs(t, c.OTP().SetCode("1"), domain.ErrFlowClosed)
	require.ErrorIs(t, c.GoBack(context.Background()), domain.ErrFlowClosed)
	require.ErrorIs(t, c.CompleteBiometric(context.Background(), true), domain.ErrFlowClosed)

	ev := emitter.waitFor(t, telemetry.EventFlowAbandoned)
	assert.Equal(t, "otp_challenge", ev.Stage)
	assert.Contains(t, auditLog.actions(), audit.ActionFlowAbandoned)
}

func TestStageNeverSkips(t *testing.T) {
	c, _ := newTestController(&fakeClient{})
	require.ErrorIs(t, c.OTP().Verify(context.Background()), domain.ErrStageMismatch)
	require.ErrorIs(t, c.OTP().Resend(context.Background()), domain.ErrStageMismatch)
	require.ErrorIs(t, c.CompleteBiometric(context.Background(), true), domain.ErrStageMismatch)
	assert.Equal(t, domain.StageMobileEntry, c.Stage())
}

func TestTelemetryAndAudit_MaskMobile(t *testing.T) {
	emitter := newCaptureEmitter()
	auditLog := &fakeAudit{}
	c, _ := newTestController(&fakeClient{}, WithEventEmitter(emitter), WithAuditLogger(auditLog))
	toBiometric(t, c)
	require.NoError(t, c.CompleteBiometric(context.Background(), true))

	ev := emitter.waitFor(t, telemetry.EventStageChanged)
	assert.Equal(t, EventSource, ev.Source)
	assert.Equal(t, "******3210", ev.Mobile)
	assert.NotContains(t, string(ev.Metadata), testMobile)

	done := emitter.waitFor(t, telemetry.EventFlowCompleted)
	assert.Equal(t, "complete", done.Stage)

	actions := auditLog.actions()
	assert.Contains(t, actions, audit.ActionOTPSent)
	assert.Contains(t, actions, audit.ActionOTPVerified)
	assert.Contains(t, actions, audit.ActionLoginSuccess)
	assert.Contains(t, actions, audit.ActionFlowCompleted)
	auditLog.mu.Lock()
	defer auditLog.mu.Unlock()
	for _, e := range auditLog.entries {
		assert.Equal(t, "******3210", e.subject)
	}
}
