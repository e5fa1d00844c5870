// Package domainerrors defines the coded error type shared by services and
// transport. Services return these; handlers translate them into HTTP status
// codes without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure. Codes are part of the API
// surface: they appear in JSON error envelopes and in per-row bulk reports.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeDuplicateID        Code = "duplicate_id"
	CodeInvalidPredecessor Code = "invalid_predecessor"
	CodeAlreadyTerminal    Code = "already_terminal"
	CodeInvariantViolation Code = "invariant_violation"
	CodeMalformedToken     Code = "malformed_token"
	CodeInvalidSignature   Code = "invalid_signature"
	CodeExpired            Code = "expired"
	CodeNothingToShare     Code = "nothing_to_share"
	CodeAnchorFailed       Code = "anchor_failed"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeInternal     Code = "internal"
)

// Error carries a code plus a human-readable message. The message is for
// operators and logs; clients should branch on the code only.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error that preserves the underlying cause for
// errors.Is/errors.As chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in this package.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code to the HTTP status handlers should write.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateID, CodeAlreadyTerminal, CodeInvalidPredecessor:
		return http.StatusConflict
	case CodeInvariantViolation:
		return http.StatusConflict
	case CodeMalformedToken, CodeInvalidSignature, CodeExpired,
		CodeNothingToShare, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeAnchorFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
