package auth

import (
	"errors"
	"unicode"
)

// MinHandleLength is the minimum accepted handle length.
const MinHandleLength = 3

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// Password policy errors. Each names the specific missing property so the
// client can surface an actionable message.
var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordNoUpper  = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLower  = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoDigit  = errors.New("password must contain at least one number")
	ErrHandleTooShort   = errors.New("handle must be at least 3 characters long")
)

// CheckPasswordStrength applies the password policy: minimum length plus
// uppercase, lowercase and digit character classes.
func CheckPasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		return ErrPasswordNoUpper
	}
	if !hasLower {
		return ErrPasswordNoLower
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	return nil
}

// CheckHandle validates a handle against the length policy.
func CheckHandle(handle string) error {
	if len(handle) < MinHandleLength {
		return ErrHandleTooShort
	}
	return nil
}
