package repository

import (
	"context"
	"database/sql"

	"github.com/Krishna101010101010/Bio-pay/internal/audit/domain"
)

// PostgresRepository persists audit logs in the audit_logs table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertAuditLog = `INSERT INTO audit_logs (id, subject, action, resource, ip, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx, insertAuditLog,
		a.ID, a.Subject, a.Action, a.Resource, a.IP, meta, a.CreatedAt)
	return err
}

const listAuditLogsBySubject = `SELECT id, subject, action, resource, ip, metadata, created_at
FROM audit_logs WHERE subject = $1 ORDER BY created_at DESC LIMIT $2`

// ListBySubject returns audit logs for subject, newest first.
func (r *PostgresRepository) ListBySubject(ctx context.Context, subject string, limit int) ([]*domain.AuditLog, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := r.db.QueryContext(ctx, listAuditLogsBySubject, subject, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var meta sql.NullString
		if err := rows.Scan(&a.ID, &a.Subject, &a.Action, &a.Resource, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Metadata = meta.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
