// Package errors provides structured error handling for fedsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Module/index errors (open, reload, lifecycle)
//   - 4XX: Request validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryModule indicates module lifecycle and index I/O errors.
	CategoryModule Category = "MODULE"
	// CategoryValidation indicates request validation errors.
	CategoryValidation Category = "VALIDATION"
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
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Module errors (200-299)
	ErrCodeModuleNotFound      = "ERR_201_MODULE_NOT_FOUND"
	ErrCodeModuleAlreadyLoaded = "ERR_202_MODULE_ALREADY_LOADED"
	ErrCodeOpenFailed          = "ERR_203_OPEN_FAILED"
	ErrCodeReloadFailed        = "ERR_204_RELOAD_FAILED"
	ErrCodeCorruptIndex        = "ERR_205_CORRUPT_INDEX"

	// Validation errors (400-499)
	ErrCodeInvalidQuery     = "ERR_401_INVALID_QUERY"
	ErrCodeInvalidLimit     = "ERR_402_INVALID_LIMIT"
	ErrCodeInvalidWeight    = "ERR_403_INVALID_WEIGHT"
	ErrCodeQueryParseFailed = "ERR_404_QUERY_PARSE_FAILED"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_MODULE_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryModule
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	case ErrCodeQueryParseFailed, ErrCodeSearchFailed:
		// Module-scoped search failures degrade one module, never the request.
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	// A reload can be retried once the on-disk index settles.
	return code == ErrCodeReloadFailed
}
