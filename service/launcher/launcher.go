// Package launcher starts and stops the external compute and storage daemons.
// Callers decide roles and parameters; the daemons themselves are managed by
// their own distribution scripts.
package launcher

import (
	"context"
	"errors"
)

// ErrCommandFailed is returned when a daemon script exits with a non-zero status.
var ErrCommandFailed = errors.New("launcher: command failed")

// Daemon identifies an external daemon variant.
type Daemon int

const (
	ComputeLeader Daemon = iota
	ComputeFollower
	StorageFormat
	StorageLeader
	StorageFollower
)

var daemonNames = [...]string{"compute-leader", "compute-follower", "storage-format", "storage-leader", "storage-follower"}

func (d Daemon) String() string {
	if int(d) < 0 || int(d) >= len(daemonNames) {
		return "unknown"
	}
	return daemonNames[d]
}

// Params carries the per-daemon settings.
type Params struct {
	// Host and Port the compute leader binds; WebPort its status page.
	Host    string
	Port    int
	WebPort int
	// MasterURL is the compute leader address a follower joins.
	MasterURL string
	Cores     int
	MemoryMB  int
	// LogDir and WorkDir are the daemon log and scratch roots.
	LogDir  string
	WorkDir string
	// ConfDir is the storage configuration directory.
	ConfDir string
}

// Launcher starts and stops daemons on the local machine.
type Launcher interface {
	Start(ctx context.Context, daemon Daemon, params Params) error
	Stop(ctx context.Context, daemon Daemon) error
}
