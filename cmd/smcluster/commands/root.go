// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to the handlers package.
package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/viant/smcluster"
	"github.com/viant/smcluster/cmd/smcluster/handlers"
)

// Root returns the root command for the smcluster CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "smcluster",
		Short:         "Run Spark and HDFS on a batch allocation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Run())
	cmd.AddCommand(Startup())
	cmd.AddCommand(Shutdown())
	cmd.AddCommand(Node())
	cmd.AddCommand(Version())

	return cmd
}

// Args returns the root arguments for a process invoked as name, so that
// "sm_run -c 4 job" behaves like "smcluster run -c 4 job".
func Args(name string, args []string) []string {
	command, ok := handlers.FromInvokedName(name)
	if !ok {
		return args
	}
	return append([]string{command.String()}, args...)
}

// execute runs a handler and turns a non-zero exit code into an error.
func execute(cmd *cobra.Command, command handlers.Command, request *handlers.Request) error {
	code, err := handlers.Dispatch(cmd.Context(), command, request)
	if errors.Is(err, smcluster.ErrMissingWorkdir) {
		_ = cmd.Usage()
	}
	if err != nil {
		var exitErr *smcluster.ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return &smcluster.ExitError{Code: code, Err: err}
	}
	if code != 0 {
		return &smcluster.ExitError{Code: code}
	}
	return nil
}
