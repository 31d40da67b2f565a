// Package domain holds the session model, stages, events and errors of the mobile + OTP + biometric sign-in flow.
package domain

// Stage is a discrete phase of the sign-in flow.
type Stage int

const (
	StageMobileEntry Stage = iota
	StageOTPChallenge
	StageBiometricConfirmation
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageMobileEntry:
		return "mobile_entry"
	case StageOTPChallenge:
		return "otp_challenge"
	case StageBiometricConfirmation:
		return "biometric_confirmation"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Next returns the stage reached by the success transition out of s.
// Complete has no successor; ok is false for it.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageMobileEntry, StageOTPChallenge, StageBiometricConfirmation:
		return s + 1, true
	default:
		return s, false
	}
}

// Previous returns the target of the "go back" edge out of s.
// Only OTPChallenge and BiometricConfirmation have one.
func (s Stage) Previous() (Stage, bool) {
	switch s {
	case StageOTPChallenge:
		return StageMobileEntry, true
	case StageBiometricConfirmation:
		return StageOTPChallenge, true
	default:
		return s, false
	}
}

// CanGoBack reports whether s has a back edge.
func (s Stage) CanGoBack() bool {
	_, ok := s.Previous()
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s == StageComplete
}
