// Package mfa issues and checks one-time passcodes for mobile sign-in.
package mfa

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const otpDigits = 6

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random 6-digit numeric OTP string (e.g. "042917").
// Uses crypto/rand for randomness.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// Hasher hashes OTPs with bcrypt so a leaked challenge store does not reveal live codes.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Out-of-range costs use bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of otp.
func (h *Hasher) Hash(otp string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(otp), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Equal reports whether otp matches hash. The comparison is constant-time.
func (h *Hasher) Equal(otp, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(otp)) == nil
}
