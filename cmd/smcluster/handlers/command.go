// Package handlers implements the smcluster commands.
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/smcluster"
)

// Command is a top-level smcluster command.
type Command int

const (
	Run Command = iota
	Startup
	Shutdown
	Node
)

var commandNames = map[Command]string{
	Run:      "run",
	Startup:  "startup",
	Shutdown: "shutdown",
	Node:     "node",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// ParseCommand returns the command named name.
func ParseCommand(name string) (Command, error) {
	for command, candidate := range commandNames {
		if candidate == name {
			return command, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", smcluster.ErrUnknownCommand, name)
}

// invokedPrefix names the per-command entry points such as sm_run.
const invokedPrefix = "sm_"

// FromInvokedName maps an entry point name such as "sm_startup" to its command.
func FromInvokedName(name string) (Command, bool) {
	suffix, ok := strings.CutPrefix(name, invokedPrefix)
	if !ok {
		return 0, false
	}
	command, err := ParseCommand(suffix)
	if err != nil || command == Node {
		return 0, false
	}
	return command, true
}

// Handler executes a command and returns the process exit code.
type Handler func(ctx context.Context, request *Request) (int, error)

var dispatch = map[Command]Handler{
	Run:      handleRun,
	Startup:  handleStartup,
	Shutdown: handleShutdown,
	Node:     handleNode,
}

// Dispatch runs the handler of command.
func Dispatch(ctx context.Context, command Command, request *Request) (int, error) {
	handler, ok := dispatch[command]
	if !ok {
		return smcluster.ExitStartupFailure, fmt.Errorf("%w: %v", smcluster.ErrUnknownCommand, command)
	}
	return handler(ctx, request)
}
