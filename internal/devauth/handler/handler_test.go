package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrymomot/foundation/pkg/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna101010101010/Bio-pay/internal/audit"
	"github.com/Krishna101010101010/Bio-pay/internal/authclient"
	"github.com/Krishna101010101010/Bio-pay/internal/devauth/service"
	"github.com/Krishna101010101010/Bio-pay/internal/devotp"
	flowservice "github.com/Krishna101010101010/Bio-pay/internal/flow/service"
	"github.com/Krishna101010101010/Bio-pay/internal/mfa"
	mfarepo "github.com/Krishna101010101010/Bio-pay/internal/mfa/repository"
	"github.com/Krishna101010101010/Bio-pay/internal/policy/engine"
	"github.com/Krishna101010101010/Bio-pay/internal/security"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
	userrepo "github.com/Krishna101010101010/Bio-pay/internal/user/repository"
)

const mobile = "9876543210"

type captureEmitter struct {
	mu     sync.Mutex
	events []*telemetry.FlowEvent
}

func (c *captureEmitter) Emit(_ context.Context, ev *telemetry.FlowEvent) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureEmitter) snapshot() []*telemetry.FlowEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*telemetry.FlowEvent(nil), c.events...)
}

type ipAudit struct {
	mu  sync.Mutex
	ips []string
}

func (a *ipAudit) LogEvent(ctx context.Context, _, _, _, _ string) {
	a.mu.Lock()
	a.ips = append(a.ips, audit.ClientIPFromContext(ctx))
	a.mu.Unlock()
}

type stubHealth struct{ err error }

func (s stubHealth) Check(context.Context) error { return s.err }

type env struct {
	srv     *httptest.Server
	tokens  *security.TokenProvider
	emitter *captureEmitter
	audit   *ipAudit
}

func newEnv(t *testing.T, limiter ratelimiter.RateLimiter, opts ...Option) *env {
	t.Helper()
	policy, err := engine.NewOPAEvaluator(context.Background(), "")
	require.NoError(t, err)
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)

	e := &env{tokens: tokens, emitter: &captureEmitter{}, audit: &ipAudit{}}
	svc, err := service.NewAuthService(service.Deps{
		Users:      userrepo.NewMemoryRepository(),
		Challenges: mfa.NewChallengeService(mfarepo.NewMemoryRepository(), mfa.NewHasher(4), mfa.ChallengeConfig{}),
		DevOTP:     devotp.NewMemoryStore(),
		Limiter:    limiter,
		Policy:     policy,
		Tokens:     tokens,
		Audit:      e.audit,
	})
	require.NoError(t, err)

	opts = append([]Option{WithEventEmitter(e.emitter)}, opts...)
	e.srv = httptest.NewServer(New(svc, tokens, opts...).Router())
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) post(t *testing.T, path string, body any) (*http.Response, Reply) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	var r Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	return resp, r
}

func (e *env) devOTP(t *testing.T) string {
	t.Helper()
	resp, err := http.Get(e.srv.URL + "/dev/otp/" + mobile)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["otp"]
}

func (e *env) register(t *testing.T) {
	t.Helper()
	resp, r := e.post(t, "/api/auth/register", map[string]any{"name": "Asha", "mobile": mobile, "userType": "customer", "fingerprint": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, r.Success)
	require.NotEmpty(t, r.UserID)
}

func TestResendOTP_InvalidMobile(t *testing.T) {
	e := newEnv(t, nil)
	resp, r := e.post(t, "/api/auth/resend-otp", map[string]string{"mobile": "12345"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, r.Success)
	assert.Equal(t, "please enter a valid 10-digit mobile number", r.Message)
}

func TestMalformedBody(t *testing.T) {
	e := newEnv(t, nil)
	resp, err := http.Post(e.srv.URL+"/api/auth/login", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFullSignIn(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)

	resp, r := e.post(t, "/api/auth/resend-otp", map[string]string{"mobile": mobile})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, r.Success)
	assert.Equal(t, service.MsgOTPSent, r.Message)
	require.NotNil(t, r.ExpiresAt)

	_, r = e.post(t, "/api/auth/verify-otp", map[string]string{"mobile": mobile, "otp": e.devOTP(t)})
	require.True(t, r.Success, r.Message)

	resp, r = e.post(t, "/api/auth/login", map[string]any{"mobile": mobile, "fingerprint": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, r.Success, r.Message)
	require.NotEmpty(t, r.Token)
	assert.NotEmpty(t, r.UserID)

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+r.Token)
	meResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer meResp.Body.Close()
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	var me meResponse
	require.NoError(t, json.NewDecoder(meResp.Body).Decode(&me))
	assert.Equal(t, r.UserID, me.UserID)
	assert.Equal(t, mobile, me.Mobile)
	assert.Equal(t, "customer", me.UserType)
}

func TestVerifyOTP_WithoutChallengeIsSoftFailure(t *testing.T) {
	e := newEnv(t, nil)
	resp, r := e.post(t, "/api/auth/verify-otp", map[string]string{"mobile": mobile, "otp": "123456"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, r.Success)
	assert.Equal(t, service.MsgOTPNoChallenge, r.Message)
}

func TestLogin_DeniedListsReasons(t *testing.T) {
	e := newEnv(t, nil)
	resp, r := e.post(t, "/api/auth/login", map[string]any{"mobile": mobile, "fingerprint": false})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "user is not registered")
	assert.Contains(t, r.Message, "fingerprint was not confirmed")
	assert.Empty(t, r.Token)
}

func TestRegister_Duplicate(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)
	resp, r := e.post(t, "/api/auth/register", map[string]any{"name": "Asha", "mobile": mobile, "userType": "customer", "fingerprint": true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, r.Success)
}

func TestResendOTP_RateLimited(t *testing.T) {
	store := ratelimiter.NewMemoryStore()
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})
	require.NoError(t, err)
	e := newEnv(t, limiter)

	resp, _ := e.post(t, "/api/auth/resend-otp", map[string]string{"mobile": mobile})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, r := e.post(t, "/api/auth/resend-otp", map[string]string{"mobile": mobile})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.False(t, r.Success)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestDevOTP_NotFound(t *testing.T) {
	e := newEnv(t, nil)
	resp, err := http.Get(e.srv.URL + "/dev/otp/" + mobile)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMe_RequiresBearer(t *testing.T) {
	e := newEnv(t, nil)
	for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
		req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/auth/me", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t, nil, WithHealth(stubHealth{}))
	resp, err := http.Get(e.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	e = newEnv(t, nil, WithHealth(stubHealth{err: errors.New("db down")}))
	resp, err = http.Get(e.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestTelemetry_MasksMobile(t *testing.T) {
	e := newEnv(t, nil)
	e.post(t, "/api/auth/resend-otp", map[string]string{"mobile": mobile})

	var ev *telemetry.FlowEvent
	require.Eventually(t, func() bool {
		for _, got := range e.emitter.snapshot() {
			if got.EventType == telemetry.EventHTTPRequest {
				ev = got
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "******3210", ev.Mobile)
	assert.Equal(t, "success", ev.Outcome)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(ev.Metadata, &meta))
	assert.Equal(t, "/api/auth/resend-otp", meta["path"])
	assert.Equal(t, float64(http.StatusOK), meta["status"])
	assert.Equal(t, audit.ActionOTPSent, meta["action"])
}

func TestAudit_ReceivesClientIP(t *testing.T) {
	e := newEnv(t, nil)
	e.post(t, "/api/auth/resend-otp", map[string]string{"mobile": mobile})

	e.audit.mu.Lock()
	defer e.audit.mu.Unlock()
	require.NotEmpty(t, e.audit.ips)
	assert.Equal(t, "127.0.0.1", e.audit.ips[0])
}

func TestAuthClient_RoundTrip(t *testing.T) {
	e := newEnv(t, nil)
	client, err := authclient.New(e.srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := client.Register(ctx, flowservice.RegisterRequest{Name: "Asha", MobileNumber: mobile, UserType: "merchant", Fingerprint: true})
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = client.ResendOTP(ctx, mobile)
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = client.VerifyOTP(ctx, mobile, e.devOTP(t))
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	res, err = client.Login(ctx, mobile, true)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	claims, err := e.tokens.ValidateAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, mobile, claims.Mobile)
	assert.Equal(t, "merchant", claims.UserType)
}
