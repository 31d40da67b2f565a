package repository

import (
	"context"
	"time"

	"github.com/Krishna101010101010/Bio-pay/internal/mfa/domain"
)

// Repository defines persistence for OTP challenges and for the verified marker that
// login consumes. Both are keyed by mobile number.
type Repository interface {
	// Put stores c, replacing any challenge for the same mobile.
	Put(ctx context.Context, c *domain.Challenge) error
	// Get returns the challenge for mobile, or nil if none.
	Get(ctx context.Context, mobile string) (*domain.Challenge, error)
	// IncrementAttempts records a failed attempt and returns the new count.
	IncrementAttempts(ctx context.Context, mobile string) (int, error)
	// Delete removes the challenge for mobile. Missing challenges are not an error.
	Delete(ctx context.Context, mobile string) error

	// MarkVerified records that mobile passed OTP verification until the given time.
	MarkVerified(ctx context.Context, mobile string, until time.Time) error
	// IsVerified reports whether mobile holds an unexpired verified marker at now.
	IsVerified(ctx context.Context, mobile string, now time.Time) (bool, error)
	// ConsumeVerified removes the marker and reports whether an unexpired one was present.
	ConsumeVerified(ctx context.Context, mobile string, now time.Time) (bool, error)
}

// DefaultChallengeTTL is the default OTP lifetime.
const DefaultChallengeTTL = 5 * time.Minute
