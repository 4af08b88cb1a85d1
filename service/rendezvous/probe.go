package rendezvous

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/procfs"
	"github.com/viant/smcluster/internal/retry"
	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/shell"
)

// DefaultProbePattern matches the command line of the compute leader process.
const DefaultProbePattern = "org.apache.spark.deploy.master.Master"

// Runner executes a command on a host.
type Runner interface {
	Run(ctx context.Context, host string, command string) (*shell.Result, error)
}

// ProcessProbe checks the process list of the recorded leader host. The local
// host is scanned through procfs, other hosts through a shell runner.
type ProcessProbe struct {
	Pattern string
	// LocalHosts lists the names of the local machine.
	LocalHosts []string
	Runner     Runner
	Retries    int
	// ProcMount overrides the proc mount point of the local scan.
	ProcMount string
	// RetryOptions adjusts remote probe backoff.
	RetryOptions []retry.Option
}

// Alive reports whether a process matching Pattern runs on record.Host.
func (p *ProcessProbe) Alive(ctx context.Context, record model.AddressRecord) (bool, error) {
	pattern := p.Pattern
	if pattern == "" {
		pattern = DefaultProbePattern
	}
	if p.isLocal(record.Host) {
		return p.scanLocal(pattern)
	}
	if p.Runner == nil {
		return false, fmt.Errorf("no runner to probe %v", record.Host)
	}
	var alive bool
	options := append([]retry.Option{retry.WithMaxRetries(p.Retries)}, p.RetryOptions...)
	err := retry.Do(ctx, func() error {
		result, err := p.Runner.Run(ctx, record.Host, "pgrep -f "+shell.Quote(pattern))
		if err != nil {
			return err
		}
		switch result.Status {
		case 0:
			alive = true
		case 1:
			alive = false
		default:
			return fmt.Errorf("probe of %v exited with %d: %s", record.Host, result.Status, result.Stdout)
		}
		return nil
	}, options...)
	return alive, err
}

func (p *ProcessProbe) isLocal(host string) bool {
	if shell.IsLocal(host) {
		return true
	}
	for _, candidate := range p.LocalHosts {
		if strings.EqualFold(candidate, host) {
			return true
		}
	}
	return false
}

func (p *ProcessProbe) scanLocal(pattern string) (bool, error) {
	mount := p.ProcMount
	if mount == "" {
		mount = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return false, fmt.Errorf("failed to open procfs: %w", err)
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}
	for _, proc := range procs {
		cmdLine, err := proc.CmdLine()
		if err != nil {
			continue
		}
		if strings.Contains(strings.Join(cmdLine, " "), pattern) {
			return true, nil
		}
	}
	return false, nil
}
