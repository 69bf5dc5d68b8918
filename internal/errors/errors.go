package errors

import (
	"fmt"
)

// SearchError is the structured error type for fedsearch.
// It provides rich context for error handling, logging, and the small
// closed status-code set exposed at the host boundary.
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_201_MODULE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Module, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SearchError.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new SearchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new SearchError with a formatted message and no cause.
func Newf(code string, format string, args ...any) *SearchError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a SearchError from an existing error.
// The error's message becomes the SearchError message.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Code is a sentinel usable with errors.Is for code-based matching.
//
//	if errors.Is(err, federrors.Code(federrors.ErrCodeModuleNotFound)) { ... }
func Code(code string) *SearchError {
	return &SearchError{Code: code}
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a SearchError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SearchError); ok {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SearchError); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a SearchError.
// Returns empty string if not a SearchError.
func GetCode(err error) string {
	if se, ok := err.(*SearchError); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SearchError.
// Returns empty string if not a SearchError.
func GetCategory(err error) Category {
	if se, ok := err.(*SearchError); ok {
		return se.Category
	}
	return ""
}
