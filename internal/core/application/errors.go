package application

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedTransactions = errors.New("malformed transactions, expected a list of records")
	ErrInvalidState          = errors.New("operation not allowed in current state")
	ErrBusy                  = errors.New("another operation is in progress")

	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	ErrPasswordNoLowercase = errors.New("password must contain a lowercase letter")
	ErrPasswordNoUppercase = errors.New("password must contain an uppercase letter")
	ErrPasswordNoDigit     = errors.New("password must contain a number")
	ErrPasswordNoSpecial   = errors.New("password must contain a special character")
	ErrPasswordMismatch    = errors.New("passwords do not match")
)

// FailureKind tags the step of an unlock or register attempt that failed.
type FailureKind int

const (
	FailureInvalidPassword FailureKind = iota
	FailurePasswordPolicy
	FailureCreateWallet
	FailureEncryptMnemonic
	FailureSaveCredential
	FailureLoadConfigurations
	FailureStartWallet
	FailureUnlock
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidPassword:
		return "invalid_password"
	case FailurePasswordPolicy:
		return "password_policy"
	case FailureCreateWallet:
		return "create_wallet"
	case FailureEncryptMnemonic:
		return "encrypt_mnemonic"
	case FailureSaveCredential:
		return "save_credential"
	case FailureLoadConfigurations:
		return "load_configurations"
	case FailureStartWallet:
		return "start_wallet"
	case FailureUnlock:
		return "unlock"
	default:
		return "unknown"
	}
}

var failureMessages = map[FailureKind]string{
	FailureInvalidPassword:    "Invalid password.",
	FailurePasswordPolicy:     "The password does not meet the requirements.",
	FailureCreateWallet:       "There was a problem creating the wallet.",
	FailureEncryptMnemonic:    "Oops! There was a problem encrypting the mnemonic.",
	FailureSaveCredential:     "Oops! There was a problem saving the wallet credentials.",
	FailureLoadConfigurations: "Oops! There was a problem enabling the master config.",
	FailureStartWallet:        "Oops! There was a problem unlocking the wallet.",
	FailureUnlock:             "Oops! There was a problem unlocking the wallet.",
}

// Failure is the result of an unlock or register step that did not succeed.
// Message is meant to be shown to the user, Err carries the cause.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func newFailure(kind FailureKind, err error) *Failure {
	return &Failure{kind, failureMessages[kind], err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Message, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
