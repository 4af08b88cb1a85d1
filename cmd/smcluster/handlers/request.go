package handlers

import (
	"strings"

	"github.com/viant/smcluster"
	"github.com/viant/smcluster/service/allocation"
	"github.com/viant/smcluster/service/shell"
)

// Request carries the parsed command line.
type Request struct {
	Workdir    string
	EnvScript  string
	ConfigFile string
	Cores      int
	MemoryMB   int
	// StorageHome enables co-located storage; UseHadoopHome takes it from HADOOP_HOME.
	StorageHome   string
	UseHadoopHome bool
	StorageHost   string
	Verbose       bool
	// Job is the job command and its arguments.
	Job []string
}

// JobCommand renders Job as a single shell command line.
func (r *Request) JobCommand() string {
	if len(r.Job) == 1 {
		return r.Job[0]
	}
	quoted := make([]string, len(r.Job))
	for i, arg := range r.Job {
		quoted[i] = shell.Quote(arg)
	}
	return strings.Join(quoted, " ")
}

// Apply overlays the command line onto cfg; it is the last configuration layer.
func (r *Request) Apply(cfg smcluster.Config, env allocation.Environ) smcluster.Config {
	if r.Workdir != "" {
		cfg.Workdir = r.Workdir
	}
	if r.EnvScript != "" {
		cfg.EnvScript = r.EnvScript
	}
	if r.Cores > 0 {
		cores := r.Cores
		cfg.Resources.Cores = &cores
	}
	if r.MemoryMB > 0 {
		memory := r.MemoryMB
		cfg.Resources.MemoryMB = &memory
	}
	if r.UseHadoopHome {
		cfg.Storage.Home = env.Get(smcluster.EnvHadoopHome)
	}
	if r.StorageHome != "" {
		cfg.Storage.Home = r.StorageHome
	}
	if r.StorageHost != "" {
		cfg.Storage.Host = r.StorageHost
	}
	if r.Verbose {
		cfg.Verbose = true
	}
	if len(r.Job) > 0 {
		cfg.Job.Command = r.JobCommand()
	}
	return cfg
}
