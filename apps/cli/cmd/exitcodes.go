package cmd

import (
	"errors"
	"fmt"
)

// Exit codes for openit CLI
const (
	// ExitSuccess indicates the request went through and every check passed
	ExitSuccess = 0

	// ExitFailure indicates a failed check or lookup
	ExitFailure = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a transport error; the response is the
	// `Error: "..." - Code: N` sentinel
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code up to Execute.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func usageError(format string, args ...any) error {
	return withExitCode(ExitUsageError, fmt.Errorf(format, args...))
}

func configError(err error) error {
	return withExitCode(ExitConfigError, err)
}

// exitCode maps an error returned by a command to a process exit code.
// Errors without a code are usage errors raised by cobra itself.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsageError
}
