// Package job runs the caller-supplied job command and the scheduler fan-out.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/viant/smcluster/internal/logging"
	"github.com/viant/smcluster/model"
)

// Runner runs a command to completion and returns its exit code.
type Runner interface {
	Run(ctx context.Context, argv []string, env map[string]string) (int, error)
}

// Exec runs commands as child processes with streamed output.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
	// Environ is the inherited environment; nil inherits the process environment.
	Environ []string
	Logger  *logrus.Entry
}

// NewExec creates an Exec streaming to the process stdout and stderr.
func NewExec(logger *logrus.Entry) *Exec {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr, Logger: logger}
}

// Run starts argv with env exported. A command that cannot be started or
// is killed by a signal reports code 1 together with the error.
func (e *Exec) Run(ctx context.Context, argv []string, env map[string]string) (int, error) {
	if len(argv) == 0 {
		return 1, fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Env = e.environ(env)
	e.Logger.WithField("command", argv).Debug("running")
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return 1, fmt.Errorf("failed to run %v: %w", argv[0], err)
}

func (e *Exec) environ(env map[string]string) []string {
	base := e.Environ
	if base == nil {
		base = os.Environ()
	}
	ret := append([]string(nil), base...)
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ret = append(ret, k+"="+env[k])
	}
	return ret
}

// ShellCommand wraps a command string for execution through /bin/sh.
func ShellCommand(command string) []string {
	return []string{"/bin/sh", "-c", command}
}

// MasterEnv exports the compute leader address to a job.
func MasterEnv(record model.AddressRecord) map[string]string {
	address := record.String()
	return map[string]string{"SPARK_MASTER_URL": address, "MASTER": address}
}

// Func adapts a function to Runner.
type Func func(ctx context.Context, argv []string, env map[string]string) (int, error)

func (f Func) Run(ctx context.Context, argv []string, env map[string]string) (int, error) {
	return f(ctx, argv, env)
}
