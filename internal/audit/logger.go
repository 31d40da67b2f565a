package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Krishna101010101010/Bio-pay/internal/audit/domain"
	auditrepo "github.com/Krishna101010101010/Bio-pay/internal/audit/repository"
)

// SystemSubject is the subject recorded for events that have no mobile number (e.g. malformed requests).
const SystemSubject = "_system"

// Audit actions recorded for the sign-in flow.
const (
	ActionOTPSent       = "otp_sent"
	ActionOTPVerified   = "otp_verified"
	ActionOTPFailed     = "otp_failed"
	ActionLoginSuccess  = "login_success"
	ActionLoginFailure  = "login_failure"
	ActionRegister      = "register"
	ActionFlowCompleted = "flow_completed"
	ActionFlowAbandoned = "flow_abandoned"
)

// Audit resources.
const (
	ResourceOTP        = "otp"
	ResourceSession    = "session"
	ResourceUser       = "user"
	ResourceSignInFlow = "signin_flow"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

type clientIPKey struct{}

// WithClientIP returns a copy of ctx carrying the caller's IP for ClientIPFromContext.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext is the IPExtractor for contexts prepared by WithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// AuditLogger writes a single audit event. Subject is a masked mobile number.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, subject, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, subject, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := ""
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if ip == "" {
		ip = "unknown"
	}
	if subject == "" {
		subject = SystemSubject
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		Subject:   subject,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
