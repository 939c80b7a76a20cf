package errors

import (
	"fmt"
)

// KBError is the structured error type for KBMCP.
// It provides rich context for error handling, logging, and user presentation.
type KBError struct {
	// Code is the unique error code (e.g., "ERR_201_CATALOG_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Upstream, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the caller may reasonably try again.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *KBError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *KBError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with KBError.
func (e *KBError) Is(target error) bool {
	if t, ok := target.(*KBError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *KBError) WithDetail(key, value string) *KBError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *KBError) WithSuggestion(suggestion string) *KBError {
	e.Suggestion = suggestion
	return e
}

// New creates a new KBError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *KBError {
	return &KBError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a KBError from an existing error.
// The error's message becomes the KBError message.
func Wrap(code string, err error) *KBError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *KBError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates an object-storage-related error.
func StorageError(message string, cause error) *KBError {
	return New(ErrCodeStorageFailed, message, cause)
}

// CatalogUnavailable creates an error for a catalog listing failure.
// Individual malformed entries never produce this; only an unreadable
// catalog prefix does.
func CatalogUnavailable(message string, cause error) *KBError {
	return New(ErrCodeCatalogUnavailable, message, cause)
}

// UpstreamError creates an error for a failed upstream service call.
func UpstreamError(message string, cause error) *KBError {
	return New(ErrCodeUpstreamUnavailable, message, cause)
}

// InvalidQuery creates an error for a rejected search query.
func InvalidQuery(message string) *KBError {
	return New(ErrCodeInvalidQuery, message, nil)
}

// SubmissionError creates an error for a failed indexing job submission.
func SubmissionError(message string, cause error) *KBError {
	return New(ErrCodeSubmissionFailed, message, cause)
}

// NoActiveVersion creates an error for query paths hit before any index
// version has been activated.
func NoActiveVersion() *KBError {
	return New(ErrCodeNoActiveVersion, "no active index version is set", nil).
		WithSuggestion("Run update_active_version (or `kbmcp promote`) once an index version is READY")
}

// NoReadyVersion creates the not-found outcome of latest-READY selection.
// This is an expected state for a fresh knowledge base, not a failure.
func NoReadyVersion() *KBError {
	return New(ErrCodeNoReadyVersion, "no READY index version exists in the catalog", nil)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *KBError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a KBError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ke, ok := err.(*KBError); ok {
		return ke.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ke, ok := err.(*KBError); ok {
		return ke.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a KBError.
// Returns empty string if not a KBError.
func GetCode(err error) string {
	if ke, ok := err.(*KBError); ok {
		return ke.Code
	}
	return ""
}

// GetCategory extracts the category from a KBError.
// Returns empty string if not a KBError.
func GetCategory(err error) Category {
	if ke, ok := err.(*KBError); ok {
		return ke.Category
	}
	return ""
}

// IsCode reports whether err is a KBError carrying the given code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// IsNoReadyVersion reports the selector's not-found outcome. Callers branch
// on this instead of treating it as a failure.
func IsNoReadyVersion(err error) bool {
	return IsCode(err, ErrCodeNoReadyVersion)
}

// IsNoActiveVersion reports whether a query failed because no version is active.
func IsNoActiveVersion(err error) bool {
	return IsCode(err, ErrCodeNoActiveVersion)
}

// IsCatalogUnavailable reports whether the version catalog could not be listed.
func IsCatalogUnavailable(err error) bool {
	return IsCode(err, ErrCodeCatalogUnavailable)
}

// IsInvalidQuery reports whether a search query was rejected before dispatch.
func IsInvalidQuery(err error) bool {
	return IsCode(err, ErrCodeInvalidQuery)
}
