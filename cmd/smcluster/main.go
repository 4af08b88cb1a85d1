// Package main is the entry point for the smcluster CLI.
//
// smcluster starts a Spark cluster, optionally with HDFS, on the machines of
// a Slurm, PBS or LSF allocation and coordinates it through a shared
// directory.
//
// Commands: run, startup, shutdown. The binary also answers to the names
// sm_run, sm_startup and sm_shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/viant/smcluster"
	"github.com/viant/smcluster/cmd/smcluster/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := commands.Root()
	root.SetArgs(commands.Args(filepath.Base(os.Args[0]), os.Args[1:]))
	err := root.ExecuteContext(ctx)
	if err == nil {
		return
	}
	var exitErr *smcluster.ExitError
	if !errors.As(err, &exitErr) || exitErr.Err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	stop()
	os.Exit(smcluster.ExitCode(err))
}
