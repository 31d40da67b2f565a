package service

import (
	"errors"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
)

// User-facing notification messages.
const (
	MsgInvalidMobile    = "Please enter a valid 10-digit Indian mobile number"
	MsgIncompleteOTP    = "Please enter the complete 6-digit OTP"
	MsgOTPSent          = "OTP sent to your mobile number"
	MsgOTPSendFailed    = "Failed to send OTP. Please try again."
	MsgOTPVerified      = "OTP verified successfully"
	MsgInvalidOTP       = "Invalid OTP. Please try again."
	MsgOTPVerifyFailed  = "Failed to verify OTP. Please try again."
	MsgOTPResent        = "A new OTP has been sent to your mobile number"
	MsgOTPResendFailed  = "Failed to resend OTP. Please try again."
	MsgBiometricFailed  = "Fingerprint verification failed. Please try again."
	MsgLoginSuccess     = "Login successful"
	MsgLoginFailed      = "Login failed. Please try again."
	MsgRegistered       = "Registration successful! Your account has been created."
	MsgRegisterFailed   = "Registration failed. Please try again."
	MsgInvalidName      = "Name must be at least 2 characters"
	MsgInvalidUserType  = "Please choose customer or merchant"
	MsgInvalidOTPFormat = "OTP must contain digits only"
)

// validationMessage returns the notification text for a local validation failure.
func validationMessage(err error) string {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	switch ve.Field {
	case "mobile":
		return MsgInvalidMobile
	case "otp":
		return MsgIncompleteOTP
	case "name":
		return MsgInvalidName
	case "userType":
		return MsgInvalidUserType
	default:
		return ve.Error()
	}
}
