package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the sign-in flow. Typed errors below match the first two via errors.Is.
var (
	// ErrValidation is matched by every *ValidationError. Local; never reaches the network.
	ErrValidation = errors.New("validation failed")
	// ErrService is matched by every *ServiceError. Recoverable by retrying the same action.
	ErrService = errors.New("authentication service error")
	// ErrVerificationMismatch is returned when the service reports that the OTP does not match.
	ErrVerificationMismatch = errors.New("otp does not match")
	// ErrRejected is wrapped in a ServiceError when the service answers success=false to a non-verify call.
	ErrRejected = errors.New("request rejected by service")

	// ErrBiometricFailed is returned when the device reports a failed biometric check.
	ErrBiometricFailed = errors.New("biometric confirmation failed")

	ErrRequestPending = errors.New("a request is already in flight")
	ErrResendNotReady = errors.New("resend is not permitted yet")
	ErrStageMismatch  = errors.New("operation not valid in current stage")
	ErrStaleResponse  = errors.New("response discarded: flow moved past the issuing stage")
	ErrFlowClosed     = errors.New("flow is closed")
)

// ValidationError reports malformed local input (mobile number, OTP, registration fields).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Operation names of the Authentication Service, used in ServiceError and telemetry.
const (
	OpResendOTP = "resend_otp"
	OpVerifyOTP = "verify_otp"
	OpLogin     = "login"
	OpRegister  = "register"
)

// ServiceError wraps a transport or service failure of one Authentication Service operation.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrService) true for any *ServiceError.
func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}
