package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

const testMobile = "9876543210"

// fakeClient records calls and answers success unless a handler is set.
type fakeClient struct {
	mu       sync.Mutex
	calls    []string
	resend   func(ctx context.Context, mobile string) (*Result, error)
	verify   func(ctx context.Context, mobile, code string) (*Result, error)
	login    func(ctx context.Context, mobile string, fingerprint bool) (*Result, error)
	register func(ctx context.Context, req RegisterRequest) (*Result, error)
}

func (f *fakeClient) record(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeClient) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) ResendOTP(ctx context.Context, mobile string) (*Result, error) {
	f.record(domain.OpResendOTP)
	if f.resend != nil {
		return f.resend(ctx, mobile)
	}
	return &Result{Success: true}, nil
}

func (f *fakeClient) VerifyOTP(ctx context.Context, mobile, code string) (*Result, error) {
	f.record(domain.OpVerifyOTP)
	if f.verify != nil {
		return f.verify(ctx, mobile, code)
	}
	return &Result{Success: true}, nil
}

func (f *fakeClient) Login(ctx context.Context, mobile string, fingerprint bool) (*Result, error) {
	f.record(domain.OpLogin)
	if f.login != nil {
		return f.login(ctx, mobile, fingerprint)
	}
	return &Result{Success: true, AccessToken: "token-1"}, nil
}

func (f *fakeClient) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	f.record(domain.OpRegister)
	if f.register != nil {
		return f.register(ctx, req)
	}
	return &Result{Success: true}, nil
}

// gate blocks a fake handler until released so a test can act while a request is in flight.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) wait() {
	g.started <- struct{}{}
	<-g.release
}

func (g *gate) awaitStart(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("request did not start")
	}
}

type recorder struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (r *recorder) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recorder) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.got...)
}

func (r *recorder) last(t *testing.T) domain.Notification {
	t.Helper()
	all := r.all()
	require.NotEmpty(t, all, "no notification recorded")
	return all[len(all)-1]
}

// idleTicks never fires; tests drive the countdown with timer.Tick.
func idleTicks(time.Duration) (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

type captureEmitter struct {
	events chan *telemetry.FlowEvent
}

func newCaptureEmitter() *captureEmitter {
	return &captureEmitter{events: make(chan *telemetry.FlowEvent, 64)}
}

func (e *captureEmitter) Emit(_ context.Context, ev *telemetry.FlowEvent) error {
	e.events <- ev
	return nil
}

// waitFor returns the first captured event of eventType.
func (e *captureEmitter) waitFor(t *testing.T, eventType string) *telemetry.FlowEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-e.events:
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("event %s not emitted", eventType)
			return nil
		}
	}
}

type auditEntry struct {
	subject, action, resource, metadata string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *fakeAudit) LogEvent(_ context.Context, subject, action, resource, metadata string) {
	a.mu.Lock()
	a.entries = append(a.entries, auditEntry{subject, action, resource, metadata})
	a.mu.Unlock()
}

func (a *fakeAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.action
	}
	return out
}

func newTestController(client AuthClient, opts ...Option) (*StageController, *recorder) {
	rec := &recorder{}
	opts = append([]Option{WithTickSource(idleTicks)}, opts...)
	return NewStageController(client, rec, opts...), rec
}

func toOTPChallenge(t *testing.T, c *StageController) {
	t.Helper()
	require.NoError(t, c.SubmitMobileNumber(context.Background(), testMobile))
	require.Equal(t, domain.StageOTPChallenge, c.Stage())
}

func toBiometric(t *testing.T, c *StageController) {
	t.Helper()
	toOTPChallenge(t, c)
	require.NoError(t, c.OTP().SetCode("123456"))
	require.NoError(t, c.OTP().Verify(context.Background()))
	require.Equal(t, domain.StageBiometricConfirmation, c.Stage())
}

// drainCountdown ticks the resend timer down to zero.
func drainCountdown(c *StageController) {
	for c.timer.Tick() > 0 {
	}
}
