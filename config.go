package smcluster

import (
	"fmt"

	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/barrier"
	"github.com/viant/smcluster/service/rendezvous"
	"github.com/viant/smcluster/service/storage"
)

// Config is the immutable session configuration. It is resolved once by the
// top-level process and persisted as the session snapshot that node-processes
// load; nothing downstream reads the ambient environment.
type Config struct {
	Workdir   string `yaml:"workdir"`
	EnvScript string `yaml:"envScript,omitempty"`
	RunID     string `yaml:"runId,omitempty"`
	Verbose   bool   `yaml:"verbose"`

	Job        JobConfig         `yaml:"job"`
	Compute    ComputeConfig     `yaml:"compute"`
	Resources  ResourceConfig    `yaml:"resources"`
	Storage    storage.Config    `yaml:"storage"`
	Rendezvous rendezvous.Config `yaml:"rendezvous"`
	Barrier    barrier.Config    `yaml:"barrier"`
}

// JobConfig holds the job command run once the cluster is up; empty keeps
// the cluster running until shutdown.
type JobConfig struct {
	Command string `yaml:"command,omitempty"`
}

// ComputeConfig describes the compute engine daemons.
type ComputeConfig struct {
	Home    string `yaml:"home,omitempty"`
	Scheme  string `yaml:"scheme"`
	Port    int    `yaml:"port"`
	WebPort int    `yaml:"webPort"`
	// MaxWorkers caps the ranks running a compute follower; zero means all.
	MaxWorkers       int    `yaml:"maxWorkers,omitempty"`
	ProbePattern     string `yaml:"probePattern"`
	ProbeCredentials string `yaml:"probeCredentials,omitempty"`
	ProbeRetries     int    `yaml:"probeRetries"`
}

// ResourceConfig holds the worker budget overrides.
type ResourceConfig struct {
	Cores                  *int `yaml:"cores,omitempty"`
	MemoryMB               *int `yaml:"memoryMB,omitempty"`
	ReservedLeaderMemoryMB int  `yaml:"reservedLeaderMemoryMB"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		Compute: ComputeConfig{
			Scheme:       "spark",
			Port:         7077,
			WebPort:      8080,
			ProbePattern: rendezvous.DefaultProbePattern,
			ProbeRetries: 3,
		},
		Resources:  ResourceConfig{ReservedLeaderMemoryMB: 4096},
		Storage:    storage.DefaultConfig(),
		Rendezvous: rendezvous.DefaultConfig(),
		Barrier:    barrier.DefaultConfig(),
	}
}

// Validate returns the first invalid setting or nil.
func (c Config) Validate() error {
	if c.Workdir == "" {
		return ErrMissingWorkdir
	}
	if c.Compute.Scheme == "" {
		return fmt.Errorf("compute.scheme is required")
	}
	if c.Compute.Port <= 0 || c.Compute.WebPort <= 0 {
		return fmt.Errorf("compute ports must be > 0")
	}
	if c.Compute.MaxWorkers < 0 {
		return fmt.Errorf("compute.maxWorkers must be >= 0")
	}
	if c.Resources.Cores != nil && *c.Resources.Cores <= 0 {
		return fmt.Errorf("resources.cores must be > 0")
	}
	if c.Resources.MemoryMB != nil && *c.Resources.MemoryMB <= 0 {
		return fmt.Errorf("resources.memoryMB must be > 0")
	}
	if c.Resources.ReservedLeaderMemoryMB < 0 {
		return fmt.Errorf("resources.reservedLeaderMemoryMB must be >= 0")
	}
	if c.Storage.Enabled() && (c.Storage.DataPort <= 0 || c.Storage.WebPort <= 0) {
		return fmt.Errorf("storage ports must be > 0")
	}
	return nil
}

// Session binds the configuration to a batch job.
func (c Config) Session(jobID string) model.Session {
	return model.Session{JobID: jobID, Workdir: c.Workdir}
}

// RolePolicy returns the settings role resolution depends on.
func (c Config) RolePolicy() model.RolePolicy {
	return model.RolePolicy{
		StorageEnabled:  c.Storage.Enabled(),
		StorageExternal: c.Storage.External(),
		MaxWorkers:      c.Compute.MaxWorkers,
	}
}

// homes returns the installation directories exported to daemon shells.
func (c Config) homes() map[string]string {
	ret := map[string]string{}
	if c.Compute.Home != "" {
		ret[EnvComputeHome] = c.Compute.Home
	}
	if c.Storage.Home != "" {
		ret[EnvHadoopHome] = c.Storage.Home
	}
	return ret
}
