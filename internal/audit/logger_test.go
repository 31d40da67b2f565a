package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/Krishna101010101010/Bio-pay/internal/audit/domain"
	auditrepo "github.com/Krishna101010101010/Bio-pay/internal/audit/repository"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListBySubject(ctx context.Context, subject string, limit int) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	ipExtractor := func(ctx context.Context) string {
		return "192.168.1.1"
	}
	logger := NewLogger(repo, ipExtractor)

	logger.LogEvent(context.Background(), "******3210", ActionOTPSent, ResourceOTP, `{"channel":"sms"}`)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Subject != "******3210" {
		t.Errorf("subject = %q, want %q", entry.Subject, "******3210")
	}
	if entry.Action != ActionOTPSent {
		t.Errorf("action = %q, want %q", entry.Action, ActionOTPSent)
	}
	if entry.Resource != ResourceOTP {
		t.Errorf("resource = %q, want %q", entry.Resource, ResourceOTP)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != `{"channel":"sms"}` {
		t.Errorf("metadata = %q", entry.Metadata)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_ClientIPFromContext(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, ClientIPFromContext)
	ctx := WithClientIP(context.Background(), "10.0.0.1")

	logger.LogEvent(ctx, "s", "action", "resource", "")

	if repo.entries[0].IP != "10.0.0.1" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "10.0.0.1")
	}
}

func TestLogger_LogEvent_UnknownIP(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil).LogEvent(context.Background(), "s", "action", "resource", "")
	NewLogger(repo, ClientIPFromContext).LogEvent(context.Background(), "s", "action", "resource", "")

	for i, e := range repo.entries {
		if e.IP != "unknown" {
			t.Errorf("entry %d ip = %q, want %q", i, e.IP, "unknown")
		}
	}
}

func TestLogger_LogEvent_SystemSubject(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil).LogEvent(context.Background(), "", "action", "resource", "")

	if repo.entries[0].Subject != SystemSubject {
		t.Errorf("subject = %q, want %q", repo.entries[0].Subject, SystemSubject)
	}
}

func TestLogger_LogEvent_RepositoryError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database error")}
	// Best-effort: must not panic.
	NewLogger(repo, nil).LogEvent(context.Background(), "s", "action", "resource", "")
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	NewLogger(nil, nil).LogEvent(context.Background(), "s", "action", "resource", "")
	var l *Logger
	l.LogEvent(context.Background(), "s", "action", "resource", "")
}

func TestLogger_WithMemoryRepository(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, nil)
	logger.LogEvent(context.Background(), "a", ActionOTPSent, ResourceOTP, "")
	logger.LogEvent(context.Background(), "b", ActionOTPSent, ResourceOTP, "")
	logger.LogEvent(context.Background(), "a", ActionOTPVerified, ResourceOTP, "")

	got, err := repo.ListBySubject(context.Background(), "a", 0)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[0].Action != ActionOTPVerified {
		t.Errorf("newest action = %q, want %q", got[0].Action, ActionOTPVerified)
	}

	limited, _ := repo.ListBySubject(context.Background(), "a", 1)
	if len(limited) != 1 {
		t.Errorf("limited entries = %d, want 1", len(limited))
	}
}
