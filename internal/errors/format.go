package errors

import (
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	se, ok := err.(*SearchError)
	if !ok {
		// Wrap standard error
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", se.Message))

	if len(se.Details) > 0 {
		for k, v := range se.Details {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
		}
	}

	sb.WriteString(fmt.Sprintf("[%s]", se.Code))

	return sb.String()
}

// StatusCode maps an error to the small closed status-code set exposed at
// the host boundary: 0 success, negative codes per failure class.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case ErrCodeModuleNotFound:
		return -1
	case ErrCodeModuleAlreadyLoaded:
		return -2
	case ErrCodeOpenFailed, ErrCodeCorruptIndex:
		return -3
	case ErrCodeReloadFailed:
		return -4
	case ErrCodeInvalidQuery, ErrCodeInvalidLimit, ErrCodeInvalidWeight:
		return -5
	default:
		return -99
	}
}
