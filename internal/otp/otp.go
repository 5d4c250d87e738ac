// Package otp issues and checks the short-lived numeric codes used for
// email-ownership verification.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"saazebharat/internal/model"
)

var (
	ErrAlreadyVerified = errors.New("registration already verified")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrExpired         = errors.New("verification code expired")
)

var codeSpace = big.NewInt(900000)

// Generate returns a 6-digit code, uniform over 100000-999999. Codes are not
// unique across registrations; each one is only ever emailed to its own
// recipient.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue binds a fresh code to an absolute expiry. Re-issuing for the same
// registration overwrites the previous code, which becomes permanently
// invalid.
func Issue(ttl time.Duration) (code string, expires time.Time, err error) {
	code, err = Generate()
	if err != nil {
		return "", time.Time{}, err
	}
	return code, time.Now().Add(ttl), nil
}

// Check classifies a supplied code against the stored one. The caller must
// clear both OTP fields atomically with the verified transition; Check itself
// never mutates the record.
func Check(r *model.Registration, supplied string, now time.Time) error {
	if r.IsEmailVerified {
		return ErrAlreadyVerified
	}
	if r.VerificationOTP == nil || *r.VerificationOTP != supplied {
		return ErrInvalidCode
	}
	if r.OTPExpires == nil || !now.Before(*r.OTPExpires) {
		return ErrExpired
	}
	return nil
}
