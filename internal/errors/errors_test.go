package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKBError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with KBError
	kbErr := New(ErrCodeStorageFailed, "upload failed: docs/a.md", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, kbErr)
	assert.Equal(t, originalErr, errors.Unwrap(kbErr))
	assert.True(t, errors.Is(kbErr, originalErr))
}

func TestKBError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "catalog error",
			code:     ErrCodeCatalogUnavailable,
			message:  "listing versions prefix failed",
			expected: "[ERR_201_CATALOG_UNAVAILABLE] listing versions prefix failed",
		},
		{
			name:     "upstream error",
			code:     ErrCodeNetworkTimeout,
			message:  "request timed out",
			expected: "[ERR_301_NETWORK_TIMEOUT] request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestKBError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeVersionNotFound, "version v1 not found", nil)
	err2 := New(ErrCodeVersionNotFound, "version v2 not found", nil)

	// Then: they match by code
	assert.True(t, errors.Is(err1, err2))
}

func TestKBError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	// Given: two errors with different codes
	err1 := New(ErrCodeNoReadyVersion, "no READY version", nil)
	err2 := New(ErrCodeNoActiveVersion, "no active version", nil)

	// Then: they don't match
	assert.False(t, errors.Is(err1, err2))
}

func TestKBError_WithDetails_AddsContext(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeVersionMalformed, "metadata object unreadable", nil)

	// When: adding details
	err = err.WithDetail("key", "versions/v42.json")
	err = err.WithDetail("reason", "invalid character '}'")

	// Then: details are available
	assert.Equal(t, "versions/v42.json", err.Details["key"])
	assert.Equal(t, "invalid character '}'", err.Details["reason"])
}

func TestKBError_WithSuggestion_AddsSuggestion(t *testing.T) {
	// Given: an upstream error
	err := New(ErrCodeUpstreamUnavailable, "retrieve endpoint unreachable", nil)

	// When: adding suggestion
	err = err.WithSuggestion("Check backend.query_url and network connectivity")

	// Then: suggestion is available
	assert.Equal(t, "Check backend.query_url and network connectivity", err.Suggestion)
}

func TestKBError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeCredentialsMissing, CategoryConfig},
		{ErrCodeCatalogUnavailable, CategoryStorage},
		{ErrCodeObjectNotFound, CategoryStorage},
		{ErrCodeNetworkTimeout, CategoryUpstream},
		{ErrCodeTokenExchange, CategoryUpstream},
		{ErrCodeInvalidQuery, CategoryValidation},
		{ErrCodeInvalidPrefix, CategoryValidation},
		{ErrCodeNoReadyVersion, CategoryLifecycle},
		{ErrCodeSubmissionFailed, CategoryLifecycle},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestKBError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeCredentialsMissing, SeverityFatal},
		{ErrCodeNoReadyVersion, SeverityInfo},
		{ErrCodeVersionNotFound, SeverityError},
		{ErrCodeNetworkTimeout, SeverityWarning}, // Retryable, so warning
		{ErrCodeCatalogUnavailable, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestKBError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeNetworkTimeout, true},
		{ErrCodeUpstreamUnavailable, true},
		{ErrCodeCatalogUnavailable, true},
		{ErrCodeInvalidQuery, false},
		{ErrCodeNoActiveVersion, false},
		{ErrCodeSubmissionFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesKBErrorFromError(t *testing.T) {
	// Given: a standard error
	originalErr := errors.New("something went wrong")

	// When: wrapping with a code
	kbErr := Wrap(ErrCodeInternal, originalErr)

	// Then: creates proper KBError
	require.NotNil(t, kbErr)
	assert.Equal(t, ErrCodeInternal, kbErr.Code)
	assert.Equal(t, "something went wrong", kbErr.Message)
	assert.Equal(t, originalErr, kbErr.Cause)
}

func TestConfigError_CreatesConfigCategoryError(t *testing.T) {
	err := ConfigError("invalid yaml syntax", nil)

	assert.Equal(t, CategoryConfig, err.Category)
	assert.Contains(t, err.Code, "CONFIG")
}

func TestCatalogUnavailable_CreatesRetryableStorageError(t *testing.T) {
	err := CatalogUnavailable("cannot list versions prefix", nil)

	assert.Equal(t, CategoryStorage, err.Category)
	assert.True(t, err.Retryable)
}

func TestUpstreamError_CreatesRetryableError(t *testing.T) {
	err := UpstreamError("connection refused", nil)

	assert.Equal(t, CategoryUpstream, err.Category)
	assert.True(t, err.Retryable)
}

func TestInvalidQuery_CreatesValidationCategoryError(t *testing.T) {
	err := InvalidQuery("query cannot be empty")

	assert.Equal(t, CategoryValidation, err.Category)
	assert.False(t, err.Retryable)
}

func TestNoReadyVersion_IsExpectedOutcomeNotFailure(t *testing.T) {
	err := NoReadyVersion()

	assert.Equal(t, SeverityInfo, err.Severity)
	assert.True(t, IsNoReadyVersion(err))
	assert.False(t, IsCatalogUnavailable(err))
}

func TestNoActiveVersion_CarriesSuggestion(t *testing.T) {
	err := NoActiveVersion()

	assert.True(t, IsNoActiveVersion(err))
	assert.NotEmpty(t, err.Suggestion)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable KBError",
			err:      New(ErrCodeNetworkTimeout, "timeout", nil),
			expected: true,
		},
		{
			name:     "non-retryable KBError",
			err:      New(ErrCodeVersionNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeNetworkTimeout, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "fatal error",
			err:      New(ErrCodeCredentialsMissing, "indexing credentials missing", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeVersionNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
