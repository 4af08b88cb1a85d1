package smcluster

import (
	"errors"
	"fmt"

	"github.com/viant/smcluster/service/allocation"
)

var (
	// ErrMissingWorkdir is returned when no session workdir is given.
	ErrMissingWorkdir = errors.New("smcluster: workdir is required")

	// ErrUnknownCommand is returned for a command name with no handler.
	ErrUnknownCommand = errors.New("smcluster: unknown command")
)

// Exit codes other than the job's own.
const (
	ExitStartupFailure         = 1
	ExitUnsupportedEnvironment = 2
)

// ExitError carries the process exit code of a failed or finished session.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, allocation.ErrUnsupportedEnvironment) {
		return ExitUnsupportedEnvironment
	}
	return ExitStartupFailure
}
