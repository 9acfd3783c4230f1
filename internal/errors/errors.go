package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig     = "CONFIG"
	ErrSSH        = "SSH"
	ErrExec       = "EXEC"
	ErrAPI        = "API"
	ErrAuth       = "AUTH"
	ErrConflict   = "CONFLICT"
	ErrValidation = "VALIDATION"
	ErrTool       = "TOOL"
	ErrRemote     = "REMOTE"
	ErrResolution = "RESOLUTION"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Printed as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// NewConflict reports that a file we were about to create already exists.
func NewConflict(path string) *Error {
	return &Error{
		Code:       ErrConflict,
		Message:    fmt.Sprintf("An SSH key with the filename %s already exists", path),
		Suggestion: "Delete it and retry, or choose a different filename",
	}
}

// NewValidation reports input that failed a constraint. field names the input
// ("filename", "password", "label") and message is the first violated rule.
func NewValidation(field, message string) *Error {
	return &Error{
		Code:       ErrValidation,
		Message:    message,
		Suggestion: fmt.Sprintf("Provide a different %s", field),
	}
}

// NewToolExecution reports a local binary that exited non-zero. output is the
// combined stdout/stderr of the process.
func NewToolExecution(tool string, output string, cause error) *Error {
	msg := fmt.Sprintf("%s failed", tool)
	if out := strings.TrimSpace(output); out != "" {
		msg = fmt.Sprintf("%s failed: %s", tool, out)
	}
	return &Error{
		Code:       ErrTool,
		Message:    msg,
		Suggestion: fmt.Sprintf("Make sure %s is installed and on your PATH", tool),
		Cause:      cause,
	}
}

// NewRemoteRejection reports an unexpected status from the platform API.
// The response body becomes the message, unchanged.
func NewRemoteRejection(status int, body string) *Error {
	return &Error{
		Code:       ErrRemote,
		Message:    body,
		Suggestion: fmt.Sprintf("The Cloud Platform answered with HTTP %d", status),
	}
}

// NewResolution reports that no eligible resource could be found.
func NewResolution(message, suggestion string) *Error {
	return &Error{
		Code:       ErrResolution,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	// First line: failure symbol + main message
	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr.Code == code
	}
	return false
}

// As is errors.As re-exported so callers importing this package under the
// name "errors" still have it.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is re-exported.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
