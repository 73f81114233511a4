package cmd

import (
	"fmt"
	"os"

	"billing-match-service/pkg/errors"
)

// ExitCode maps an error onto a process exit code using the error taxonomy.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	if matchErr, ok := errors.AsMatchError(err); ok {
		printMatchError(matchErr)
		return matchErr.GetExitCode()
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	return 1
}

func printMatchError(err *errors.MatchError) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}

	for key, value := range err.Context {
		if value == nil || value == "" {
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
	}
}
