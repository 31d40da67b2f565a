package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/Krishna101010101010/Bio-pay/internal/audit/domain"
)

// MemoryRepository keeps audit logs in process memory. Used when DATABASE_URL is unset and in tests.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create appends a copy of a. The entry must have ID set.
func (r *MemoryRepository) Create(_ context.Context, a *domain.AuditLog) error {
	if a == nil || a.ID == "" {
		return errors.New("audit: entry id is required")
	}
	cp := *a
	r.mu.Lock()
	r.entries = append(r.entries, &cp)
	r.mu.Unlock()
	return nil
}

// ListBySubject returns copies of the entries for subject, newest first.
func (r *MemoryRepository) ListBySubject(_ context.Context, subject string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Subject != subject {
			continue
		}
		cp := *r.entries[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
