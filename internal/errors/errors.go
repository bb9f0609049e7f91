package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SymbolNotResolvable indicates the call-hierarchy provider found no
	// symbol at the requested position; the whole build aborts with no
	// partial graph.
	SymbolNotResolvable ErrorCode = "SYMBOL_NOT_RESOLVABLE"
	// RelocationMiss indicates a stored symbol could not be re-found in the
	// live symbol tree; the owning node is marked broken, the operation
	// continues.
	RelocationMiss ErrorCode = "RELOCATION_MISS"
	// BackendUnavailable indicates no provider could serve the request
	BackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// ServerNotConfigured indicates no language server is registered for a language
	ServerNotConfigured ErrorCode = "SERVER_NOT_CONFIGURED"
	// ServerNotReady indicates the language server is still initializing
	ServerNotReady ErrorCode = "SERVER_NOT_READY"
	// GraphNotFound indicates a stored graph document does not exist
	GraphNotFound ErrorCode = "GRAPH_NOT_FOUND"
	// NodeNotFound indicates a node id is not present in a graph document
	NodeNotFound ErrorCode = "NODE_NOT_FOUND"
	// WorkspaceNotFound indicates a registered workspace does not exist
	WorkspaceNotFound ErrorCode = "WORKSPACE_NOT_FOUND"
	// IndexMissing indicates a SCIP index was requested but not found
	IndexMissing ErrorCode = "INDEX_MISSING"
	// Timeout indicates a provider request timed out
	Timeout ErrorCode = "TIMEOUT"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// StoreError indicates a persistence failure
	StoreError ErrorCode = "STORE_ERROR"
	// InvalidParameter indicates a bad request parameter
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is a callmap error with a stable code and an optional cause.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error with an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails attaches structured details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from err, or InternalError when err is not
// a callmap error.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Hints maps error codes to a suggested next command for CLI output.
var Hints = map[ErrorCode]string{
	ServerNotConfigured: "run 'callmap servers' to see registered language servers",
	ServerNotReady:      "run 'callmap status' and retry once the server is ready",
	BackendUnavailable:  "run 'callmap status' to check provider availability",
	IndexMissing:        "generate a SCIP index or configure a language server",
	GraphNotFound:       "run 'callmap graphs list' to see stored graphs",
	WorkspaceNotFound:   "run 'callmap workspaces' to see registered workspaces",
	ConfigInvalid:       "run 'callmap init' to regenerate the default configuration",
}

// HintFor returns the suggested next command for a code, or empty.
func HintFor(code ErrorCode) string {
	return Hints[code]
}
