package domain

import (
	"errors"
	"time"
)

// Challenge is an outstanding OTP for one mobile number. A newer challenge replaces the older one.
type Challenge struct {
	ID          string
	Mobile      string
	CodeHash    string
	Attempts    int
	MaxAttempts int
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the challenge can no longer be verified at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Exhausted reports whether all verification attempts have been used.
func (c *Challenge) Exhausted() bool {
	return c.MaxAttempts > 0 && c.Attempts >= c.MaxAttempts
}

// Verification outcomes other than success.
var (
	ErrChallengeNotFound = errors.New("no OTP was issued for this number")
	ErrChallengeExpired  = errors.New("OTP has expired")
	ErrTooManyAttempts   = errors.New("too many incorrect attempts")
	ErrCodeMismatch      = errors.New("OTP does not match")
)
