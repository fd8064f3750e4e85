// Package errors defines the domain error taxonomy.
// Every error that crosses the HTTP boundary carries a stable UPPER_SNAKE
// code; the transport layer maps codes to status codes in exactly one place.
package errors

import (
	"errors"
	"fmt"
)

// Stable error codes. These are part of the public API contract.
const (
	CodeValidationError         = "VALIDATION_ERROR"
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeCurrencyMismatch        = "CURRENCY_MISMATCH"
	CodeInsufficientFunds       = "INSUFFICIENT_FUNDS"
	CodeLimitExceeded           = "LIMIT_EXCEEDED"
	CodeForbiddenScope          = "FORBIDDEN_SCOPE"
	CodeCounterpartyNotAllowed  = "COUNTERPARTY_NOT_ALLOWED"
	CodeRecipientNotFound       = "RECIPIENT_NOT_FOUND"
	CodeWalletNotActive         = "WALLET_NOT_ACTIVE"
	CodeWalletFrozen            = "WALLET_FROZEN"
	CodeWalletClosed            = "WALLET_CLOSED"
	CodeWalletNotFound          = "WALLET_NOT_FOUND"
	CodeHoldNotFound            = "HOLD_NOT_FOUND"
	CodeHoldExpired             = "HOLD_EXPIRED"
	CodeHoldNotCapturable       = "HOLD_NOT_CAPTURABLE"
	CodeHoldNotReleasable       = "HOLD_NOT_RELEASABLE"
	CodeAmountExceedsHold       = "AMOUNT_EXCEEDS_HOLD"
	CodeAmountExceedsRefundable = "AMOUNT_EXCEEDS_REFUNDABLE"
	CodeCaptureNotFound         = "CAPTURE_NOT_FOUND"
	CodeIntentNotFound          = "PAYMENT_INTENT_NOT_FOUND"
	CodeIntentExpired           = "PAYMENT_INTENT_EXPIRED"
	CodeIntentNotPayable        = "PAYMENT_INTENT_NOT_PAYABLE"
	CodeSelfTransfer            = "SELF_TRANSFER"
	CodeSelfPayment             = "SELF_PAYMENT"
	CodeIdempotencyConflict     = "IDEMPOTENCY_CONFLICT"
	CodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeHandleTaken             = "HANDLE_TAKEN"
	CodeIdentityTaken           = "IDENTITY_TAKEN"
	CodeNotFound                = "NOT_FOUND"
	CodeInternal                = "INTERNAL_ERROR"
)

// Sentinel errors for flow control with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConcurrentUpdate    = errors.New("concurrent update, retry")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrIdempotencyConflict = errors.New("idempotency key reuse across operation types")
)

// DomainError is a business error with a stable code and optional
// machine-readable details.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New builds a DomainError with the given code and message.
func New(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf builds a DomainError with a formatted message.
func Newf(code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// WithDetails returns a copy of the error carrying extra context for the
// response body.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// AsDomain extracts a *DomainError from an error chain.
func AsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

// CodeOf returns the stable code for an error, or CodeInternal when the
// error carries none.
func CodeOf(err error) string {
	if de, ok := AsDomain(err); ok {
		return de.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrIdempotencyConflict):
		return CodeIdempotencyConflict
	default:
		return CodeInternal
	}
}

// Convenience constructors for the common cases.

func Validation(message string) *DomainError {
	return New(CodeValidationError, message)
}

func Validationf(format string, args ...any) *DomainError {
	return Newf(CodeValidationError, format, args...)
}

func InvalidAmount(message string) *DomainError {
	return New(CodeInvalidAmount, message)
}

func CurrencyMismatch(want, got string) *DomainError {
	return New(CodeCurrencyMismatch, "currency mismatch").WithDetails(map[string]any{
		"expected": want,
		"got":      got,
	})
}

func InsufficientFunds(available, requested string) *DomainError {
	return New(CodeInsufficientFunds, "insufficient available balance").WithDetails(map[string]any{
		"available": available,
		"requested": requested,
	})
}

func WalletNotFound() *DomainError {
	return New(CodeWalletNotFound, "wallet not found")
}

// WalletState maps a non-active wallet status to its specific code.
func WalletState(status string) *DomainError {
	switch status {
	case "frozen":
		return New(CodeWalletFrozen, "wallet is frozen")
	case "closed":
		return New(CodeWalletClosed, "wallet is closed")
	default:
		return New(CodeWalletNotActive, "wallet is not active").WithDetails(map[string]any{
			"status": status,
		})
	}
}

func Forbidden(message string) *DomainError {
	return New(CodeForbidden, message)
}

func ForbiddenScope(scope string) *DomainError {
	return New(CodeForbiddenScope, "api key lacks required scope").WithDetails(map[string]any{
		"required_scope": scope,
	})
}

func IdempotencyConflict() *DomainError {
	return &DomainError{
		Code:    CodeIdempotencyConflict,
		Message: "idempotency key was already used for a different operation",
		Err:     ErrIdempotencyConflict,
	}
}

// IsNotFound reports whether err is any of the not-found family.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	de, ok := AsDomain(err)
	if !ok {
		return false
	}
	switch de.Code {
	case CodeNotFound, CodeWalletNotFound, CodeRecipientNotFound,
		CodeHoldNotFound, CodeCaptureNotFound, CodeIntentNotFound:
		return true
	}
	return false
}
