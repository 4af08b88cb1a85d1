package commands

import (
	"github.com/spf13/cobra"

	"github.com/viant/smcluster/cmd/smcluster/handlers"
)

// Startup returns the startup command.
//
// Startup starts a cluster without a job. The node-processes hold the
// cluster until shutdown is called for the same workdir.
func Startup() *cobra.Command {
	request := &handlers.Request{}

	cmd := &cobra.Command{
		Use:   "startup [flags] WORKDIR [ENVSCRIPT]",
		Short: "Start a cluster and keep it until shutdown",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional(request, args)
			return execute(cmd, handlers.Startup, request)
		},
	}

	bindCommon(cmd, request)

	return cmd
}

// Shutdown returns the shutdown command.
func Shutdown() *cobra.Command {
	request := &handlers.Request{}

	cmd := &cobra.Command{
		Use:   "shutdown WORKDIR [ENVSCRIPT]",
		Short: "Stop a cluster started with startup",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional(request, args)
			return execute(cmd, handlers.Shutdown, request)
		},
	}

	cmd.Flags().StringVar(&request.ConfigFile, "config", "", "TOML configuration file (default $SM_CONFIG)")

	return cmd
}

// Node returns the node-process command started on every machine by run.
func Node() *cobra.Command {
	request := &handlers.Request{}

	return &cobra.Command{
		Use:    "node WORKDIR",
		Short:  "Run one node-process of a session",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request.Workdir = args[0]
			return execute(cmd, handlers.Node, request)
		},
	}
}

func positional(request *handlers.Request, args []string) {
	request.Workdir = args[0]
	if len(args) > 1 {
		request.EnvScript = args[1]
	}
}
