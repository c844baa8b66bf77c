// Package domainerrors defines the error taxonomy surfaced by the engine's
// services. Stores return sentinel errors (pkg/platform/sentinel) for
// infrastructure facts; services translate those and their own validation
// into coded errors so transports can map them without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks malformed or inconsistent input. Always
	// caller-fixable, never retried.
	CodeValidation Code = "validation_error"

	// CodeStateConflict marks an operation that is illegal for the entity's
	// current state. The caller must re-fetch state before retrying.
	CodeStateConflict Code = "state_conflict"

	// CodeQuorumNotMet marks a release attempt before all required approvals
	// exist. Recoverable by submitting more approvals.
	CodeQuorumNotMet Code = "quorum_not_met"

	// CodeTransferFailed marks an external disbursement failure. The
	// provider's raw error is preserved in the chain and must never be
	// auto-retried.
	CodeTransferFailed Code = "transfer_failed"

	CodeNotFound Code = "not_found"
	CodeInternal Code = "internal_error"
)

// Error carries a code alongside the message. It wraps an optional cause so
// errors.Is / errors.As keep working through service boundaries.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable via errors.Unwrap, which matters for TransferFailed where the
// provider's verbatim error is needed for reconciliation.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status the transport layer should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeStateConflict, CodeQuorumNotMet:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
