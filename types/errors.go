package types

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrNameNotAvailable   ErrorCode = "NAME_NOT_AVAILABLE"
	ErrTokenIDMismatch    ErrorCode = "TOKEN_ID_MISMATCH"
	ErrTokenNodeMismatch  ErrorCode = "TOKEN_NODE_MISMATCH"
	ErrNameIsLocked       ErrorCode = "NAME_IS_LOCKED"
	ErrNameNotLocked      ErrorCode = "NAME_NOT_LOCKED"
	ErrNameNotETH2LD      ErrorCode = "NAME_NOT_ETH_2LD"
	ErrNotDotEthName      ErrorCode = "NOT_DOT_ETH_NAME"
	ErrInconsistentFuses  ErrorCode = "INCONSISTENT_FUSES_STATE"
	ErrUnauthorizedCaller ErrorCode = "UNAUTHORIZED_CALLER"
	ErrLengthMismatch     ErrorCode = "LENGTH_MISMATCH"
	ErrZeroRecipient      ErrorCode = "ZERO_RECIPIENT"
	ErrAccessDenied       ErrorCode = "ACCESS_DENIED"
	ErrExpiryNotExtended  ErrorCode = "EXPIRY_NOT_EXTENDED"
	ErrUnsupportedFormat  ErrorCode = "UNSUPPORTED_FORMAT"
	ErrDuplicateMessage   ErrorCode = "DUPLICATE_MESSAGE"
	ErrInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	ErrNonTransferable    ErrorCode = "NON_TRANSFERABLE"
	ErrInternal           ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
//
// Callers branch on Code via IsCode/CodeOf rather than matching strings;
// Message is for humans and may evolve.
type CodedError struct {
	Code    ErrorCode
	Message string
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

func Errorf(code ErrorCode, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is (or wraps) a *CodedError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *CodedError
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf returns the stable code for a structured error, or "" if unknown.
func CodeOf(err error) ErrorCode {
	var e *CodedError
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
