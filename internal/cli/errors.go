// Package cli holds exit-code plumbing shared by the sapauth commands.
package cli

import (
	"errors"
	"fmt"
	"io"

	"sapauth/pkg/parser"
	"sapauth/pkg/source"
)

// Exit codes.
const (
	ExitSuccess  = 0
	ExitGeneral  = 1
	ExitConfig   = 2
	ExitFetch    = 3
	ExitWorkbook = 4
	ExitNotFound = 5
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Report prints err to w and returns the exit code it maps to. Errors that are
// not ExitErrors are classified by their sentinel: fetch failures and unreadable
// workbooks get their own codes.
func Report(w io.Writer, err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(w, "Error:", err)

	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, source.ErrFetch):
		return ExitFetch
	case errors.Is(err, parser.ErrWorkbook):
		return ExitWorkbook
	}
	return ExitGeneral
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// LoadError creates an ExitError for a failed export load, choosing the code
// from the underlying cause.
func LoadError(msg string, err error) *ExitError {
	code := ExitGeneral
	switch {
	case errors.Is(err, source.ErrFetch):
		code = ExitFetch
	case errors.Is(err, parser.ErrWorkbook):
		code = ExitWorkbook
	}
	return &ExitError{Code: code, Message: msg, Err: err}
}

// NotFoundError creates an ExitError with ExitNotFound code.
func NotFoundError(msg string) *ExitError {
	return &ExitError{Code: ExitNotFound, Message: msg}
}

// UsageError creates an ExitError with ExitGeneral code.
func UsageError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}
