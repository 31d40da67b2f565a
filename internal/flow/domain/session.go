package domain

import "strings"

// Session is a point-in-time copy of the state of one sign-in attempt.
type Session struct {
	MobileNumber string
	Stage        Stage
	// OTPCode holds at most OTPLength digits; cleared on resend and on entry to a fresh OTP challenge.
	OTPCode string
	// ResendWindow is the number of countdown ticks left before a resend is permitted.
	// A tick is one second unless the controller is configured otherwise.
	ResendWindow int
	// PendingRequest is true while a network call for the current stage is outstanding.
	PendingRequest bool
}

// CompletedSession is emitted exactly once, when the flow reaches StageComplete.
type CompletedSession struct {
	MobileNumber        string
	VerifiedByBiometric bool
	// AccessToken is the token returned by login, if the service issued one.
	AccessToken string
}

// NotificationKind distinguishes success and error notifications.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a user-facing message for a terminal outcome of a stage operation.
type Notification struct {
	Kind    NotificationKind
	Message string
	Stage   Stage
	// Err is the failure behind an error notification; nil for success.
	Err error
}

// MaskMobile hides all but the last four digits of a mobile number (e.g. "******3210").
// Used wherever a number leaves the flow for logs, telemetry or audit metadata.
func MaskMobile(mobile string) string {
	mobile = strings.TrimSpace(mobile)
	if len(mobile) <= 4 {
		return strings.Repeat("*", len(mobile))
	}
	return strings.Repeat("*", len(mobile)-4) + mobile[len(mobile)-4:]
}
