// Package engine decides whether a login may be granted.
package engine

import "context"

// LoginInput is what the login policy sees about one attempt.
type LoginInput struct {
	Registered           bool
	UserType             string
	OTPVerified          bool
	FingerprintConfirmed bool
}

// Decision is the outcome of a login policy evaluation. Reasons lists every failed
// requirement in a stable order and is empty when Allow is true.
type Decision struct {
	Allow   bool
	Reasons []string
}

// Evaluator evaluates the login policy.
type Evaluator interface {
	EvaluateLogin(ctx context.Context, in LoginInput) (Decision, error)
}
