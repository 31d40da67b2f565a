package domain

import (
	"errors"
	"time"
)

// ErrUserExists is returned when a mobile number is already registered.
var ErrUserExists = errors.New("user already registered")

// User is a registered BioPay account holder.
type User struct {
	ID     string
	Name   string
	Mobile string // 10-digit number; unique
	// UserType is "customer" or "merchant".
	UserType string
	// FingerprintEnrolled is true when the user confirmed a fingerprint at registration.
	FingerprintEnrolled bool
	Status              UserStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Mobile == "" {
		return errors.New("mobile is required")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// Active reports whether the user may sign in.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}
