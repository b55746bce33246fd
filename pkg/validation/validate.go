// Package validation holds the local form checks that run before any
// network call. A failure here is a user-facing message, not a state
// change.
package validation

import (
	"errors"
	"strings"
)

// MinPasswordLen matches the signup form's stated minimum.
const MinPasswordLen = 6

// OTPLen is the exact length of the one-time signup code.
const OTPLen = 6

// Login checks the login form fields.
func Login(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return errors.New("please fill in all required fields")
	}
	return nil
}

// Signup checks the registration form fields.
func Signup(username, email, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return errors.New("please fill in all required fields")
	}
	if len(password) < MinPasswordLen {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// OTP checks the verification code shape: exactly six digits.
func OTP(code string) error {
	code = strings.TrimSpace(code)
	if len(code) != OTPLen {
		return errors.New("verification code must be 6 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return errors.New("verification code must be 6 digits")
		}
	}
	return nil
}
