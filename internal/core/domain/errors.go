// Package domain defines the core domain models for ShadowHome.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes follow the format SH-<AREA>-<NNNN>; the last four digits carry the
// HTTP status class used by the API layer.
type DomainError struct {
	Code    string // Error code (e.g., "SH-WLT-4090")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
// The cause's message becomes the details when none are set, so provider
// messages such as "User rejected the request." reach the caller verbatim.
func (e *DomainError) WithCause(cause error) *DomainError {
	details := e.Details
	if details == "" && cause != nil {
		details = cause.Error()
	}
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Wallet Errors (WLT)
// ============================================================================

// Wallet error codes.
const (
	CodeProviderUnavailable  = "SH-WLT-5030"
	CodeConnectionFailed     = "SH-WLT-5020"
	CodeDisconnectFailed     = "SH-WLT-5021"
	CodeAuthenticationFailed = "SH-WLT-4010"
	CodeNotConnected         = "SH-WLT-4000"
	CodeOperationInProgress  = "SH-WLT-4090"
	CodeStaleOperation       = "SH-WLT-4091"
)

var (
	// ErrProviderUnavailable indicates no recognized wallet provider was found.
	// Not retryable without user action (install or enable the extension).
	ErrProviderUnavailable = NewDomainError(CodeProviderUnavailable, "wallet provider not found")

	// ErrConnectionFailed indicates the provider rejected or failed a connect request.
	ErrConnectionFailed = NewDomainError(CodeConnectionFailed, "failed to connect wallet")

	// ErrDisconnectFailed indicates the provider failed a disconnect request.
	// Local state is reset regardless.
	ErrDisconnectFailed = NewDomainError(CodeDisconnectFailed, "failed to disconnect wallet")

	// ErrAuthenticationFailed indicates the provider rejected or failed to sign the challenge.
	ErrAuthenticationFailed = NewDomainError(CodeAuthenticationFailed, "authentication failed")

	// ErrNotConnected indicates authentication was requested without a connected wallet.
	ErrNotConnected = NewDomainError(CodeNotConnected, "no wallet connected")

	// ErrOperationInProgress indicates another wallet operation is still pending.
	ErrOperationInProgress = NewDomainError(CodeOperationInProgress, "wallet operation already in progress")

	// ErrStaleOperation indicates an operation result was discarded because
	// the session changed while it was in flight.
	ErrStaleOperation = NewDomainError(CodeStaleOperation, "wallet operation superseded")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("SH-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("SH-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("SH-SYS-5030", "service unavailable")

	// ErrWaitTimeout indicates the caller stopped waiting for an operation.
	// The operation itself may still complete.
	ErrWaitTimeout = NewDomainError("SH-SYS-5040", "gave up waiting for the wallet")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("SH-SYS-4000", "bad request")

	// ErrUnauthorized indicates missing or invalid API credentials.
	ErrUnauthorized = NewDomainError("SH-SYS-4010", "authentication required")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("SH-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SH-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SH-ARG-1002", "missing required argument")
)

// ErrorKind classifies wallet failures independently of their codes.
type ErrorKind string

// Error kinds.
const (
	KindNone                 ErrorKind = ""
	KindProviderUnavailable  ErrorKind = "ProviderUnavailable"
	KindConnectionFailed     ErrorKind = "ConnectionFailed"
	KindDisconnectFailed     ErrorKind = "DisconnectFailed"
	KindAuthenticationFailed ErrorKind = "AuthenticationFailed"
	KindNotConnected         ErrorKind = "NotConnected"
	KindOperationInProgress  ErrorKind = "OperationInProgress"
	KindStaleOperation       ErrorKind = "StaleOperation"
	KindInternal             ErrorKind = "Internal"
)

var codeKinds = map[string]ErrorKind{
	CodeProviderUnavailable:  KindProviderUnavailable,
	CodeConnectionFailed:     KindConnectionFailed,
	CodeDisconnectFailed:     KindDisconnectFailed,
	CodeAuthenticationFailed: KindAuthenticationFailed,
	CodeNotConnected:         KindNotConnected,
	CodeOperationInProgress:  KindOperationInProgress,
	CodeStaleOperation:       KindStaleOperation,
}

// KindOf returns the wallet error kind of err.
// Non-wallet errors map to KindInternal; nil maps to KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if kind, ok := codeKinds[GetErrorCode(err)]; ok {
		return kind
	}
	return KindInternal
}

// Retryable reports whether a caller may retry the failed operation as is.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindConnectionFailed, KindAuthenticationFailed, KindOperationInProgress, KindDisconnectFailed:
		return true
	default:
		return false
	}
}

// LastError is the error descriptor recorded on the session.
type LastError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// NewLastError builds a descriptor from err, or returns nil for a nil error.
func NewLastError(err error) *LastError {
	if err == nil {
		return nil
	}
	return &LastError{
		Kind:    KindOf(err),
		Code:    GetErrorCode(err),
		Message: err.Error(),
	}
}
