package application

import (
	"errors"
	"unicode"
)

const minPasswordLength = 8

// PasswordPolicy checks the strength of a new wallet password.
type PasswordPolicy struct {
	MinLength int
}

var DefaultPasswordPolicy = PasswordPolicy{MinLength: minPasswordLength}

// Validate returns all the unmet requirements of password joined together,
// or nil if the password is acceptable and matches repeat.
func (p PasswordPolicy) Validate(password, repeat string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = minPasswordLength
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSpace(r), unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
		default:
			hasSpecial = true
		}
	}

	errs := make([]error, 0)
	if length < minLength {
		errs = append(errs, ErrPasswordTooShort)
	}
	if !hasLower {
		errs = append(errs, ErrPasswordNoLowercase)
	}
	if !hasUpper {
		errs = append(errs, ErrPasswordNoUppercase)
	}
	if !hasDigit {
		errs = append(errs, ErrPasswordNoDigit)
	}
	if !hasSpecial {
		errs = append(errs, ErrPasswordNoSpecial)
	}
	if password != repeat {
		errs = append(errs, ErrPasswordMismatch)
	}
	return errors.Join(errs...)
}
