package domain

import (
	"regexp"
	"strings"
)

// OTPLength is the number of digits in a one-time passcode.
const OTPLength = 6

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// User types accepted at registration.
const (
	UserTypeCustomer = "customer"
	UserTypeMerchant = "merchant"
)

// ValidateMobile checks input is a 10-digit mobile number starting with 6-9.
// Input is matched as given, so surrounding whitespace is rejected.
// Returns the number or a *ValidationError.
func ValidateMobile(input string) (string, error) {
	if input == "" {
		return "", &ValidationError{Field: "mobile", Reason: "mobile number is required"}
	}
	if !mobilePattern.MatchString(input) {
		return "", &ValidationError{Field: "mobile", Reason: "please enter a valid 10-digit mobile number"}
	}
	return input, nil
}

// ValidateOTP checks that code is exactly OTPLength digits.
func ValidateOTP(code string) error {
	if len(code) != OTPLength || !allDigits(code) {
		return &ValidationError{Field: "otp", Reason: "please enter the complete 6-digit OTP"}
	}
	return nil
}

// NormalizeCode strips whitespace and keeps at most OTPLength characters.
// Returns a *ValidationError if anything other than digits remains.
func NormalizeCode(input string) (string, error) {
	code := strings.Join(strings.Fields(input), "")
	if !allDigits(code) {
		return "", &ValidationError{Field: "otp", Reason: "otp must contain digits only"}
	}
	if len(code) > OTPLength {
		code = code[:OTPLength]
	}
	return code, nil
}

// ValidateRegistration checks the fields of a registration request.
// Returns the trimmed name and mobile number.
func ValidateRegistration(name, mobile, userType string) (string, string, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return "", "", &ValidationError{Field: "name", Reason: "name must be at least 2 characters"}
	}
	mobile, err := ValidateMobile(mobile)
	if err != nil {
		return "", "", err
	}
	switch userType {
	case UserTypeCustomer, UserTypeMerchant:
	default:
		return "", "", &ValidationError{Field: "userType", Reason: "user type must be customer or merchant"}
	}
	return name, mobile, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
