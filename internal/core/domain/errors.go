package domain

import (
	"errors"
	"fmt"
)

// DomainError is a coded error for failures that are not gate refusals:
// bad input, unreadable trust anchors, storage problems.
//
// Codes have the form VG-<AREA>-NNNN and are stable across releases.
type DomainError struct {
	Code    string // Error code (e.g., "VG-VAULT-4040")
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

// Is matches any DomainError with the same code.
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
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
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

// GetErrorCode extracts the code from a DomainError or a Refusal.
func GetErrorCode(err error) string {
	if r, ok := AsRefusal(err); ok {
		return r.Code()
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Blob Errors (BLOB)
// ============================================================================

var (
	// ErrBlobValidation indicates the blob is structurally invalid.
	ErrBlobValidation = NewDomainError("VG-BLOB-4001", "blob validation failed")

	// ErrBlobMalformed indicates a blob file could not be decoded.
	ErrBlobMalformed = NewDomainError("VG-BLOB-4002", "malformed blob file")
)

// ============================================================================
// Trust Anchor Errors (TRUST)
// ============================================================================

var (
	// ErrTrustAnchorsInvalid indicates the ledger or manifest source is unusable.
	ErrTrustAnchorsInvalid = NewDomainError("VG-TRUST-4001", "invalid trust anchors")

	// ErrManifestInvalid indicates a manifest with empty or duplicate keys.
	ErrManifestInvalid = NewDomainError("VG-TRUST-4002", "invalid configuration manifest")

	// ErrLedgerInvalid indicates a ledger with malformed ids or digests.
	ErrLedgerInvalid = NewDomainError("VG-TRUST-4003", "invalid digest ledger")
)

// ============================================================================
// Vault Errors (VAULT)
// ============================================================================

var (
	// ErrBlobNotFound indicates the blob is not in the vault.
	ErrBlobNotFound = NewDomainError("VG-VAULT-4040", "blob not found")

	// ErrBlobConflict indicates a different blob is already stored under the id.
	ErrBlobConflict = NewDomainError("VG-VAULT-4090", "blob id conflict")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected internal error.
	ErrInternal = NewDomainError("VG-SYS-5000", "internal error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("VG-SYS-5001", "storage error")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("VG-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("VG-ARG-1002", "missing required argument")
)
