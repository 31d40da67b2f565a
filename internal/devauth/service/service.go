// Package service implements the reference Authentication Service behind /api/auth/*:
// OTP dispatch and verification, policy-gated login and registration.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/foundation/pkg/ratelimiter"
	"github.com/google/uuid"

	"github.com/Krishna101010101010/Bio-pay/internal/audit"
	flowdomain "github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/mfa"
	mfadomain "github.com/Krishna101010101010/Bio-pay/internal/mfa/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/mfa/sms"
	"github.com/Krishna101010101010/Bio-pay/internal/policy/engine"
	"github.com/Krishna101010101010/Bio-pay/internal/security"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
	userdomain "github.com/Krishna101010101010/Bio-pay/internal/user/domain"
	userrepo "github.com/Krishna101010101010/Bio-pay/internal/user/repository"
)

// EventSource is the Source of telemetry events emitted by the service.
const EventSource = "devauth"

// Sentinel errors; the HTTP handler maps them to status codes.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("too many OTP requests")
	ErrVerificationFailed = errors.New("otp verification failed")
	ErrLoginDenied        = errors.New("login denied")
	ErrUserExists         = userdomain.ErrUserExists
	ErrDevOTPDisabled     = errors.New("dev OTP mode is disabled")
	ErrNoDevOTP           = errors.New("no OTP outstanding for this number")
	ErrSendFailed         = errors.New("could not send OTP")
)

// RateLimitError carries how long the caller should wait before asking for another OTP.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many OTP requests; retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// Messages returned to clients on success and on rejected verification.
const (
	MsgOTPSent         = "OTP sent successfully"
	MsgOTPVerified     = "OTP verified"
	MsgOTPMismatch     = "Invalid OTP"
	MsgOTPExpired      = "OTP expired. Please request a new one"
	MsgOTPNoChallenge  = "No OTP requested for this number"
	MsgTooManyAttempts = "Too many incorrect attempts. Please request a new OTP"
	MsgLoginSuccess    = "Login successful"
	MsgRegistered      = "Registration successful"
)

// Challenges is the OTP challenge store used by the service.
type Challenges interface {
	Issue(ctx context.Context, mobile string) (otp string, expiresAt time.Time, err error)
	Verify(ctx context.Context, mobile, code string) error
	IsVerified(ctx context.Context, mobile string) (bool, error)
	ConsumeVerified(ctx context.Context, mobile string) (bool, error)
}

var _ Challenges = (*mfa.ChallengeService)(nil)

// DevOTPStore keeps plain OTPs for GET /dev/otp/{mobile}.
type DevOTPStore interface {
	Put(ctx context.Context, mobile, otp string, expiresAt time.Time)
	Get(ctx context.Context, mobile string) (string, bool)
	Delete(ctx context.Context, mobile string)
}

// Deps holds the collaborators of AuthService. Users, Challenges, Policy and Tokens are required.
// Exactly one of Sender and DevOTP delivers codes; DevOTP wins when both are set.
type Deps struct {
	Users      userrepo.Repository
	Challenges Challenges
	Sender     sms.OTPSender
	DevOTP     DevOTPStore
	// Limiter throttles OTP dispatch per mobile number. Nil disables throttling.
	Limiter ratelimiter.RateLimiter
	Policy  engine.Evaluator
	Tokens  *security.TokenProvider
	Audit   audit.AuditLogger
	Emitter telemetry.EventEmitter
	Logger  *slog.Logger
}

// AuthService implements the reference Authentication Service. Safe for concurrent use.
type AuthService struct {
	deps Deps
	log  *slog.Logger
	now  func() time.Time
}

// NewAuthService validates deps and returns the service.
func NewAuthService(deps Deps) (*AuthService, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("devauth: user repository is required")
	case deps.Challenges == nil:
		return nil, errors.New("devauth: challenge store is required")
	case deps.Policy == nil:
		return nil, errors.New("devauth: policy evaluator is required")
	case deps.Tokens == nil:
		return nil, errors.New("devauth: token provider is required")
	case deps.Sender == nil && deps.DevOTP == nil:
		return nil, errors.New("devauth: an OTP sender or dev OTP store is required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{deps: deps, log: log, now: func() time.Time { return time.Now().UTC() }}, nil
}

// DevOTPEnabled reports whether codes are kept for GET /dev/otp/{mobile} instead of sent by SMS.
func (s *AuthService) DevOTPEnabled() bool {
	return s.deps.DevOTP != nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// ResendOTP issues a fresh OTP for mobile and delivers it. Returns the OTP expiry.
func (s *AuthService) ResendOTP(ctx context.Context, mobile string) (time.Time, error) {
	mobile, err := flowdomain.ValidateMobile(mobile)
	if err != nil {
		return time.Time{}, invalid(err)
	}
	if s.deps.Limiter != nil {
		res, err := s.deps.Limiter.Allow(ctx, "otp:"+mobile)
		if err != nil {
			return time.Time{}, fmt.Errorf("rate limiter: %w", err)
		}
		if !res.Allowed() {
			s.log.WarnContext(ctx, "otp rate limited", "mobile", flowdomain.MaskMobile(mobile))
			return time.Time{}, &RateLimitError{RetryAfter: res.RetryAfter()}
		}
	}
	otp, expiresAt, err := s.deps.Challenges.Issue(ctx, mobile)
	if err != nil {
		return time.Time{}, fmt.Errorf("issue otp: %w", err)
	}
	if s.deps.DevOTP != nil {
		s.deps.DevOTP.Put(ctx, mobile, otp, expiresAt)
	} else if err := s.deps.Sender.SendOTP(ctx, mobile, otp); err != nil {
		s.log.ErrorContext(ctx, "otp delivery failed", "mobile", flowdomain.MaskMobile(mobile), "error", err)
		return time.Time{}, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	s.log.InfoContext(ctx, "otp sent", "mobile", flowdomain.MaskMobile(mobile), "expires_at", expiresAt)
	s.record(ctx, mobile, telemetry.EventOTPSent, "success", audit.ActionOTPSent, audit.ResourceOTP, "")
	return expiresAt, nil
}

// VerifyOTP checks code for mobile. A rejected code returns a *VerificationError carrying the
// client-facing message.
func (s *AuthService) VerifyOTP(ctx context.Context, mobile, code string) error {
	mobile, err := flowdomain.ValidateMobile(mobile)
	if err != nil {
		return invalid(err)
	}
	if err := flowdomain.ValidateOTP(strings.TrimSpace(code)); err != nil {
		return invalid(err)
	}
	err = s.deps.Challenges.Verify(ctx, mobile, strings.TrimSpace(code))
	if err != nil {
		msg, known := verificationMessage(err)
		if !known {
			return fmt.Errorf("verify otp: %w", err)
		}
		s.record(ctx, mobile, telemetry.EventOTPMismatch, "failure", audit.ActionOTPFailed, audit.ResourceOTP, err.Error())
		return &VerificationError{Message: msg, Err: err}
	}
	if s.deps.DevOTP != nil {
		s.deps.DevOTP.Delete(ctx, mobile)
	}
	s.record(ctx, mobile, telemetry.EventOTPVerified, "success", audit.ActionOTPVerified, audit.ResourceOTP, "")
	return nil
}

// VerificationError is a rejected OTP. Message is safe to show to the user.
type VerificationError struct {
	Message string
	Err     error
}

func (e *VerificationError) Error() string { return e.Err.Error() }
func (e *VerificationError) Unwrap() error { return e.Err }
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

func verificationMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, mfadomain.ErrCodeMismatch):
		return MsgOTPMismatch, true
	case errors.Is(err, mfadomain.ErrChallengeExpired):
		return MsgOTPExpired, true
	case errors.Is(err, mfadomain.ErrTooManyAttempts):
		return MsgTooManyAttempts, true
	case errors.Is(err, mfadomain.ErrChallengeNotFound):
		return MsgOTPNoChallenge, true
	}
	return "", false
}

// LoginResult is a granted login.
type LoginResult struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// DeniedError is a login refused by policy. Reasons are safe to show to the user.
type DeniedError struct {
	Reasons []string
}

func (e *DeniedError) Error() string {
	return "login denied: " + strings.Join(e.Reasons, "; ")
}

func (e *DeniedError) Is(target error) bool { return target == ErrLoginDenied }

// Login evaluates the login policy for mobile and, when allowed, spends the OTP verification
// and issues an access token.
func (s *AuthService) Login(ctx context.Context, mobile string, fingerprint bool) (*LoginResult, error) {
	mobile, err := flowdomain.ValidateMobile(mobile)
	if err != nil {
		return nil, invalid(err)
	}
	u, err := s.deps.Users.GetByMobile(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	verified, err := s.deps.Challenges.IsVerified(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("check verification: %w", err)
	}
	in := engine.LoginInput{
		Registered:           u != nil && u.Active(),
		OTPVerified:          verified,
		FingerprintConfirmed: fingerprint,
	}
	if u != nil {
		in.UserType = u.UserType
	}
	decision, err := s.deps.Policy.EvaluateLogin(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("login policy: %w", err)
	}
	if !decision.Allow {
		return nil, s.denied(ctx, mobile, decision.Reasons)
	}
	// The verification is single-use; a concurrent login may have spent it.
	consumed, err := s.deps.Challenges.ConsumeVerified(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("consume verification: %w", err)
	}
	if !consumed {
		return nil, s.denied(ctx, mobile, []string{"mobile number is not verified"})
	}
	token, expiresAt, err := s.deps.Tokens.IssueAccess(u.ID, u.Mobile, u.UserType)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	s.log.InfoContext(ctx, "login succeeded", "mobile", flowdomain.MaskMobile(mobile), "user_id", u.ID)
	s.record(ctx, mobile, telemetry.EventLoginSucceeded, "success", audit.ActionLoginSuccess, audit.ResourceSession, "")
	return &LoginResult{UserID: u.ID, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) denied(ctx context.Context, mobile string, reasons []string) error {
	err := &DeniedError{Reasons: reasons}
	s.log.InfoContext(ctx, "login denied", "mobile", flowdomain.MaskMobile(mobile), "reasons", reasons)
	s.record(ctx, mobile, telemetry.EventFlowFailure, "failure", audit.ActionLoginFailure, audit.ResourceSession, err.Error())
	return err
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name        string
	Mobile      string
	UserType    string
	Fingerprint bool
}

// Register creates a user. The fingerprint must have been enrolled on the device.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	name, mobile, err := flowdomain.ValidateRegistration(in.Name, in.Mobile, in.UserType)
	if err != nil {
		return "", invalid(err)
	}
	if !in.Fingerprint {
		return "", invalid(&flowdomain.ValidationError{Field: "fingerprint", Reason: "fingerprint enrollment is required"})
	}
	now := s.now()
	u := &userdomain.User{
		ID:                  uuid.New().String(),
		Name:                name,
		Mobile:              mobile,
		UserType:            in.UserType,
		FingerprintEnrolled: true,
		Status:              userdomain.UserStatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.deps.Users.Create(ctx, u); err != nil {
		if errors.Is(err, userdomain.ErrUserExists) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	s.log.InfoContext(ctx, "user registered", "mobile", flowdomain.MaskMobile(mobile), "user_id", u.ID, "user_type", u.UserType)
	s.record(ctx, mobile, telemetry.EventRegistered, "success", audit.ActionRegister, audit.ResourceUser, "")
	return u.ID, nil
}

// DevOTP returns the outstanding OTP for mobile in dev OTP mode.
func (s *AuthService) DevOTP(ctx context.Context, mobile string) (string, error) {
	if s.deps.DevOTP == nil {
		return "", ErrDevOTPDisabled
	}
	mobile, err := flowdomain.ValidateMobile(mobile)
	if err != nil {
		return "", invalid(err)
	}
	otp, ok := s.deps.DevOTP.Get(ctx, mobile)
	if !ok {
		return "", ErrNoDevOTP
	}
	return otp, nil
}

// record emits a telemetry event and writes an audit entry; both are best-effort.
func (s *AuthService) record(ctx context.Context, mobile, eventType, outcome, action, resource, detail string) {
	masked := flowdomain.MaskMobile(mobile)
	if s.deps.Emitter != nil {
		ev := telemetry.NewFlowEvent(eventType, EventSource)
		ev.Mobile = masked
		ev.Outcome = outcome
		if detail != "" {
			ev.Metadata, _ = json.Marshal(map[string]string{"detail": detail})
		}
		telemetry.EmitAsync(s.deps.Emitter, ctx, ev)
	}
	if s.deps.Audit != nil {
		meta := ""
		if detail != "" {
			raw, _ := json.Marshal(map[string]string{"detail": detail})
			meta = string(raw)
		}
		s.deps.Audit.LogEvent(ctx, masked, action, resource, meta)
	}
}
