// Package authclient is the HTTP client of the Authentication Service (/api/auth/*).
// It implements the flow's AuthClient contract.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/service"
)

const (
	defaultTimeout = 15 * time.Second
	tracerName     = "github.com/Krishna101010101010/Bio-pay/internal/authclient"
	maxErrorBody   = 4 << 10
)

// Endpoint paths relative to the base URL.
const (
	PathLogin     = "/api/auth/login"
	PathRegister  = "/api/auth/register"
	PathVerifyOTP = "/api/auth/verify-otp"
	PathResendOTP = "/api/auth/resend-otp"
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authclient: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("authclient: status %d", e.StatusCode)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client calls the Authentication Service over JSON/HTTP. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
	tracer  trace.Tracer
}

var _ service.AuthClient = (*Client)(nil)

// New returns a client for baseURL (e.g. http://localhost:8081).
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("authclient: base URL is empty")
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type reply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

// ResendOTP asks the service to send a fresh OTP to mobile.
func (c *Client) ResendOTP(ctx context.Context, mobile string) (*service.Result, error) {
	return c.post(ctx, domain.OpResendOTP, PathResendOTP, mobile, map[string]any{"mobile": mobile})
}

// VerifyOTP checks code for mobile. A mismatch is Success=false, not an error.
func (c *Client) VerifyOTP(ctx context.Context, mobile, code string) (*service.Result, error) {
	return c.post(ctx, domain.OpVerifyOTP, PathVerifyOTP, mobile, map[string]any{"mobile": mobile, "otp": code})
}

// Login signs mobile in after biometric confirmation.
func (c *Client) Login(ctx context.Context, mobile string, fingerprint bool) (*service.Result, error) {
	return c.post(ctx, domain.OpLogin, PathLogin, mobile, map[string]any{"mobile": mobile, "fingerprint": fingerprint})
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req service.RegisterRequest) (*service.Result, error) {
	return c.post(ctx, domain.OpRegister, PathRegister, req.MobileNumber, map[string]any{
		"name":        req.Name,
		"mobile":      req.MobileNumber,
		"userType":    req.UserType,
		"fingerprint": req.Fingerprint,
	})
}

func (c *Client) post(ctx context.Context, op, path, mobile string, body any) (*service.Result, error) {
	ctx, span := c.tracer.Start(ctx, "authclient."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.path", path),
			attribute.String("biopay.mobile", domain.MaskMobile(mobile)),
		))
	defer span.End()

	start := time.Now()
	res, status, err := c.do(ctx, path, body)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.WarnContext(ctx, "auth request failed", "op", op, "status", status, "duration", time.Since(start), "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("biopay.success", res.Success))
	c.log.DebugContext(ctx, "auth request", "op", op, "status", status, "success", res.Success, "duration", time.Since(start))
	return res, nil
}

func (c *Client) do(ctx context.Context, path string, body any) (*service.Result, int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var r reply
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &r) == nil && r.Message != "" {
			msg = r.Message
		}
		return nil, resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	var r reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("authclient: decode response: %w", err)
	}
	return &service.Result{Success: r.Success, Message: r.Message, AccessToken: r.Token}, resp.StatusCode, nil
}
