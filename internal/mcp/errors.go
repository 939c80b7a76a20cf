// Package mcp implements the Model Context Protocol server for KBMCP.
package mcp

import (
	"context"
	"errors"
	"fmt"

	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

// Tool-layer error codes in the JSON-RPC implementation-defined range.
const (
	// ErrCodeNoActiveVersion indicates no index version is active.
	ErrCodeNoActiveVersion = -32001

	// ErrCodeNoReadyVersion indicates no READY version exists to promote.
	ErrCodeNoReadyVersion = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeObjectNotFound indicates a storage object does not exist.
	ErrCodeObjectNotFound = -32004

	// ErrCodeObjectTooLarge indicates a storage object exceeds the
	// download limit.
	ErrCodeObjectTooLarge = -32005

	// ErrCodeCatalogUnavailable indicates the version catalog could not
	// be listed.
	ErrCodeCatalogUnavailable = -32006

	// ErrCodeUpstream indicates the managed service rejected or failed
	// a request.
	ErrCodeUpstream = -32007

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is the protocol error shape returned to agents.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to protocol errors. Agent-facing
// messages stay actionable but never include raw upstream response
// bodies; those stay in error details and logs.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ke *kberrors.KBError
	if errors.As(err, &ke) {
		return mapKBError(ke)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an invalid-parameters error with a
// custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapKBError converts a KBError to an MCPError. The message keeps the
// suggestion so agents can tell the operator what to do next.
func mapKBError(ke *kberrors.KBError) *MCPError {
	message := ke.Message
	if ke.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ke.Message, ke.Suggestion)
	}

	switch ke.Code {
	case kberrors.ErrCodeInvalidQuery,
		kberrors.ErrCodeInvalidPrefix,
		kberrors.ErrCodeInvalidVersionID,
		kberrors.ErrCodeVersionNotFound,
		kberrors.ErrCodeVersionNotReady:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}

	case kberrors.ErrCodeNoActiveVersion:
		return &MCPError{Code: ErrCodeNoActiveVersion, Message: message}

	case kberrors.ErrCodeNoReadyVersion:
		return &MCPError{Code: ErrCodeNoReadyVersion, Message: message}

	case kberrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}

	case kberrors.ErrCodeObjectNotFound:
		return &MCPError{Code: ErrCodeObjectNotFound, Message: message}

	case kberrors.ErrCodeObjectTooLarge:
		return &MCPError{Code: ErrCodeObjectTooLarge, Message: message}

	case kberrors.ErrCodeCatalogUnavailable:
		return &MCPError{Code: ErrCodeCatalogUnavailable, Message: message}

	case kberrors.ErrCodeUpstreamUnavailable,
		kberrors.ErrCodeUpstreamRejected,
		kberrors.ErrCodeTokenExchange,
		kberrors.ErrCodeRerankFailed,
		kberrors.ErrCodeSubmissionFailed:
		return &MCPError{Code: ErrCodeUpstream, Message: message}

	default:
		// Config and internal errors are server-side problems; the
		// message is safe (config errors never embed secret values).
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
