package repository

import (
	"context"

	"github.com/Krishna101010101010/Bio-pay/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListBySubject returns the newest entries first, at most limit (all when limit <= 0).
	ListBySubject(ctx context.Context, subject string, limit int) ([]*domain.AuditLog, error)
}
