// Package service implements the stage-transition controller of the mobile + OTP + biometric sign-in flow.
//
// StageController owns the session and sequences MobileEntry, OTPChallenge, BiometricConfirmation and
// Complete. OTPController handles code entry, verification and throttled resend for the OTP stage.
// Both call the Authentication Service through AuthClient and report every terminal outcome to a Notifier.
package service

import (
	"context"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
)

// Result is the reply of an Authentication Service operation.
type Result struct {
	Success bool
	Message string
	// AccessToken is set by login when the service issues one.
	AccessToken string
}

// RegisterRequest is the input of the register operation.
type RegisterRequest struct {
	Name         string
	MobileNumber string
	UserType     string
	Fingerprint  bool
}

// AuthClient is the Authentication Service contract consumed by the controllers.
// A returned error means a transport or service failure; Success=false is a well-formed refusal.
type AuthClient interface {
	ResendOTP(ctx context.Context, mobile string) (*Result, error)
	VerifyOTP(ctx context.Context, mobile, code string) (*Result, error)
	Login(ctx context.Context, mobile string, fingerprint bool) (*Result, error)
	Register(ctx context.Context, req RegisterRequest) (*Result, error)
}

// Notifier surfaces success and error messages to the user.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n domain.Notification) {
	f(ctx, n)
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, domain.Notification) {}
