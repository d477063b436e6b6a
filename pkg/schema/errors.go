package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeIneligible     = "INELIGIBLE"
	ErrCodeNoTarget       = "NO_TARGET"
	ErrCodeClipboardEmpty = "CLIPBOARD_EMPTY"
	ErrCodeNoSelection    = "NO_SELECTION"
	ErrCodeNoDocument     = "NO_DOCUMENT"
	ErrCodePersistence    = "PERSISTENCE_ERROR"
	ErrCodeStore          = "STORE_ERROR"
	ErrCodeExpression     = "EXPRESSION_ERROR"
)

// EditorError is the structured error type for all editor operations.
type EditorError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *EditorError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *EditorError) Unwrap() error {
	return e.Cause
}

// NewError creates a new EditorError.
func NewError(code, message string) *EditorError {
	return &EditorError{Code: code, Message: message}
}

// NewErrorf creates a new EditorError with a formatted message.
func NewErrorf(code, format string, args ...any) *EditorError {
	return &EditorError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *EditorError) WithNode(nodeID string) *EditorError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *EditorError) WithCause(err error) *EditorError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *EditorError) WithDetails(details map[string]any) *EditorError {
	e.Details = details
	return e
}

// IsCode reports whether err (or anything it wraps) is an EditorError with the given code.
func IsCode(err error, code string) bool {
	var edErr *EditorError
	if !errors.As(err, &edErr) {
		return false
	}
	return edErr.Code == code
}
