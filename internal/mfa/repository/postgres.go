package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Krishna101010101010/Bio-pay/internal/mfa/domain"
)

// PostgresRepository stores challenges in otp_challenges and markers in verified_mobiles.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an OTP challenge repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const upsertChallenge = `INSERT INTO otp_challenges (mobile, id, code_hash, attempts, max_attempts, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (mobile) DO UPDATE SET id = EXCLUDED.id, code_hash = EXCLUDED.code_hash,
  attempts = EXCLUDED.attempts, max_attempts = EXCLUDED.max_attempts,
  expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`

// Put persists the challenge, replacing any existing one for the mobile. The challenge must have ID set.
func (r *PostgresRepository) Put(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, upsertChallenge,
		c.Mobile, c.ID, c.CodeHash, c.Attempts, c.MaxAttempts, c.ExpiresAt, c.CreatedAt)
	return err
}

const getChallenge = `SELECT id, mobile, code_hash, attempts, max_attempts, expires_at, created_at
FROM otp_challenges WHERE mobile = $1`

// Get returns the challenge for mobile, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, mobile string) (*domain.Challenge, error) {
	var c domain.Challenge
	err := r.db.QueryRowContext(ctx, getChallenge, mobile).Scan(
		&c.ID, &c.Mobile, &c.CodeHash, &c.Attempts, &c.MaxAttempts, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// IncrementAttempts bumps the attempt counter atomically.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, mobile string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`UPDATE otp_challenges SET attempts = attempts + 1 WHERE mobile = $1 RETURNING attempts`, mobile).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrChallengeNotFound
	}
	return n, err
}

// Delete removes the challenge for mobile.
func (r *PostgresRepository) Delete(ctx context.Context, mobile string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE mobile = $1`, mobile)
	return err
}

// MarkVerified upserts the verified marker.
func (r *PostgresRepository) MarkVerified(ctx context.Context, mobile string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO verified_mobiles (mobile, expires_at) VALUES ($1, $2)
ON CONFLICT (mobile) DO UPDATE SET expires_at = EXCLUDED.expires_at`, mobile, until)
	return err
}

// IsVerified reports whether an unexpired marker exists.
func (r *PostgresRepository) IsVerified(ctx context.Context, mobile string, now time.Time) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM verified_mobiles WHERE mobile = $1 AND expires_at > $2)`, mobile, now).Scan(&ok)
	return ok, err
}

// ConsumeVerified deletes the marker and reports whether it was unexpired.
func (r *PostgresRepository) ConsumeVerified(ctx context.Context, mobile string, now time.Time) (bool, error) {
	var until time.Time
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM verified_mobiles WHERE mobile = $1 RETURNING expires_at`, mobile).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return now.Before(until), nil
}
