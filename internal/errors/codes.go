// Package errors provides structured error handling for KBMCP.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and catalog errors
//   - 3XX: Upstream service errors (network, auth, retrieval)
//   - 4XX: Validation errors
//   - 5XX: Index lifecycle errors
//   - 9XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates object storage and catalog errors.
	CategoryStorage Category = "STORAGE"
	// CategoryUpstream indicates upstream service and network errors.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryLifecycle indicates index version lifecycle errors.
	CategoryLifecycle Category = "LIFECYCLE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates an expected negative outcome, not a failure.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound     = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid      = "ERR_102_CONFIG_INVALID"
	ErrCodeCredentialsMissing = "ERR_103_CREDENTIALS_MISSING"

	// Storage and catalog errors (200-299)
	ErrCodeCatalogUnavailable = "ERR_201_CATALOG_UNAVAILABLE"
	ErrCodeVersionMalformed   = "ERR_202_VERSION_MALFORMED"
	ErrCodeObjectNotFound     = "ERR_203_OBJECT_NOT_FOUND"
	ErrCodeObjectTooLarge     = "ERR_204_OBJECT_TOO_LARGE"
	ErrCodeStorageFailed      = "ERR_205_STORAGE_FAILED"

	// Upstream errors (300-399)
	ErrCodeNetworkTimeout      = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeUpstreamUnavailable = "ERR_302_UPSTREAM_UNAVAILABLE"
	ErrCodeTokenExchange       = "ERR_303_TOKEN_EXCHANGE"
	ErrCodeUpstreamRejected    = "ERR_304_UPSTREAM_REJECTED"
	ErrCodeRerankFailed        = "ERR_305_RERANK_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidQuery     = "ERR_401_INVALID_QUERY"
	ErrCodeInvalidPrefix    = "ERR_402_INVALID_PREFIX"
	ErrCodeInvalidVersionID = "ERR_403_INVALID_VERSION_ID"

	// Lifecycle errors (500-599)
	ErrCodeSubmissionFailed = "ERR_501_SUBMISSION_FAILED"
	ErrCodeNoActiveVersion  = "ERR_502_NO_ACTIVE_VERSION"
	ErrCodeNoReadyVersion   = "ERR_503_NO_READY_VERSION"
	ErrCodeVersionNotFound  = "ERR_504_VERSION_NOT_FOUND"
	ErrCodeVersionNotReady  = "ERR_505_VERSION_NOT_READY"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_CATALOG_UNAVAILABLE")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	case '5':
		return CategoryLifecycle
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Fatal errors
	switch code {
	case ErrCodeCredentialsMissing:
		return SeverityFatal
	}

	// Absence of a READY or active version is a normal state, not a failure.
	switch code {
	case ErrCodeNoReadyVersion:
		return SeverityInfo
	}

	// Retryable upstream errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Default to error severity
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Retryable is advisory only: nothing in this codebase retries on its own,
// callers decide whether and when to try again.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeUpstreamUnavailable, ErrCodeCatalogUnavailable:
		return true
	default:
		return false
	}
}
