// Package main provides the entry point for the fedsearch CLI.
package main

import (
	"os"

	"github.com/offlinekit/fedsearch/cmd/fedsearch/cmd"
	ferrors "github.com/offlinekit/fedsearch/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		// Negated status codes keep the per-class exit codes in the 1..99
		// range the shell can represent.
		os.Exit(-ferrors.StatusCode(err))
	}
}
