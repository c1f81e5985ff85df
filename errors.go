package nftkit

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for nftkit operations.
var (
	// ErrUnauthorized is returned when the caller doesn't hold the role an operation requires.
	ErrUnauthorized = errors.New("nftkit: unauthorized")

	// ErrInvalidRecipient is returned when minting to the zero address.
	ErrInvalidRecipient = errors.New("nftkit: invalid recipient")

	// ErrNotFound is returned when querying a token that was never minted.
	ErrNotFound = errors.New("nftkit: token not found")

	// ErrNoCaller is returned when no caller address is present in context.
	ErrNoCaller = errors.New("nftkit: no caller in context")

	// ErrInvalidSignature is returned when a signed request cannot be
	// attributed to a caller: bad encoding, expired timestamp, reused nonce or
	// a signer other than the claimed address.
	ErrInvalidSignature = errors.New("nftkit: invalid request signature")

	// ErrInvalidRole is returned when a role name cannot be resolved.
	ErrInvalidRole = errors.New("nftkit: invalid role")

	// ErrAuditFailed is returned when the audit log rejects a record.
	// The mutation that produced the record is not applied.
	ErrAuditFailed = errors.New("nftkit: audit log failure")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err     error          // Underlying sentinel error
	Message string         // Additional context
	Role    *Role          // Role involved (if applicable)
	Account common.Address // Account involved (if applicable)
	Caller  common.Address // Caller that triggered the error (if applicable)
	TokenID TokenID        // Token involved (zero if none)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role Role) *Error {
	e.Role = &role
	return e
}

// WithAccount adds the target account to the error.
func (e *Error) WithAccount(account common.Address) *Error {
	e.Account = account
	return e
}

// WithCaller adds the caller to the error.
func (e *Error) WithCaller(caller common.Address) *Error {
	e.Caller = caller
	return e
}

// WithToken adds token information to the error.
func (e *Error) WithToken(id TokenID) *Error {
	e.TokenID = id
	return e
}

// IsUnauthorized checks if an error is an authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInvalidRecipient checks if an error is due to a zero-address recipient.
func IsInvalidRecipient(err error) bool {
	return errors.Is(err, ErrInvalidRecipient)
}

// IsNotFound checks if an error is due to a nonexistent token.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidRole checks if an error is due to an unknown role name.
func IsInvalidRole(err error) bool {
	return errors.Is(err, ErrInvalidRole)
}
