package smcluster

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/allocation"
	"gopkg.in/yaml.v3"
)

// Environment variables recognised by WithEnviron.
const (
	EnvWorkdir      = "SM_WORKDIR"
	EnvWorkerCores  = "SM_WORKER_CORES"
	EnvWorkerMemory = "SM_WORKER_MEMORY"
	EnvMasterMemory = "SM_MASTER_MEMORY"
	EnvStorageHome  = "SM_HDFS_HOME"
	EnvStorageHost  = "SM_HDFS_HOST"
	EnvLocalDisk    = "SM_LOCAL_DISK"
	EnvMaxWorkers   = "SM_MAX_WORKERS"
	EnvExecute      = "SM_EXECUTE"
	EnvVerbose      = "SM_VERBOSE"
	EnvConfig       = "SM_CONFIG"
	EnvEnvScript    = "SM_ENVSCRIPT"
	EnvComputeHome  = "SPARK_HOME"
	EnvHadoopHome   = "HADOOP_HOME"
)

type fileConfig struct {
	Workdir          string `toml:"workdir"`
	EnvScript        string `toml:"env_script"`
	Verbose          bool   `toml:"verbose"`
	Execute          string `toml:"execute"`
	SparkHome        string `toml:"spark_home"`
	ComputePort      int    `toml:"compute_port"`
	ComputeWebPort   int    `toml:"compute_web_port"`
	MaxWorkers       int    `toml:"max_workers"`
	ProbePattern     string `toml:"probe_pattern"`
	ProbeCredentials string `toml:"probe_credentials"`
	ProbeRetries     int    `toml:"probe_retries"`
	WorkerCores      int    `toml:"worker_cores"`
	WorkerMemory     int    `toml:"worker_memory"`
	MasterMemory     int    `toml:"master_memory"`
	HDFSHome         string `toml:"hdfs_home"`
	HDFSHost         string `toml:"hdfs_host"`
	LocalDisk        string `toml:"local_disk"`
	HDFSDataPort     int    `toml:"hdfs_data_port"`
	HDFSWebPort      int    `toml:"hdfs_web_port"`
	HDFSSettle       string `toml:"hdfs_settle"`
	HDFSTimeout      string `toml:"hdfs_timeout"`
	RendezvousPoll   string `toml:"rendezvous_poll"`
	RendezvousWait   string `toml:"rendezvous_timeout"`
	BarrierPoll      string `toml:"barrier_poll"`
	BarrierWait      string `toml:"barrier_timeout"`
}

// LoadFile overlays the keys defined in a TOML defaults file onto cfg.
func LoadFile(filename string, cfg Config) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(filename, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %v: %w", filename, err)
	}
	setString := func(key string, value string, target *string) {
		if meta.IsDefined(key) {
			*target = strings.TrimSpace(value)
		}
	}
	setInt := func(key string, value int, target *int) {
		if meta.IsDefined(key) {
			*target = value
		}
	}
	setString("workdir", raw.Workdir, &cfg.Workdir)
	setString("env_script", raw.EnvScript, &cfg.EnvScript)
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	setString("execute", raw.Execute, &cfg.Job.Command)
	setString("spark_home", raw.SparkHome, &cfg.Compute.Home)
	setInt("compute_port", raw.ComputePort, &cfg.Compute.Port)
	setInt("compute_web_port", raw.ComputeWebPort, &cfg.Compute.WebPort)
	setInt("max_workers", raw.MaxWorkers, &cfg.Compute.MaxWorkers)
	setString("probe_pattern", raw.ProbePattern, &cfg.Compute.ProbePattern)
	setString("probe_credentials", raw.ProbeCredentials, &cfg.Compute.ProbeCredentials)
	setInt("probe_retries", raw.ProbeRetries, &cfg.Compute.ProbeRetries)
	if meta.IsDefined("worker_cores") {
		cfg.Resources.Cores = intPtr(raw.WorkerCores)
	}
	if meta.IsDefined("worker_memory") {
		cfg.Resources.MemoryMB = intPtr(raw.WorkerMemory)
	}
	setInt("master_memory", raw.MasterMemory, &cfg.Resources.ReservedLeaderMemoryMB)
	setString("hdfs_home", raw.HDFSHome, &cfg.Storage.Home)
	setString("hdfs_host", raw.HDFSHost, &cfg.Storage.Host)
	setString("local_disk", raw.LocalDisk, &cfg.Storage.LocalDisk)
	setInt("hdfs_data_port", raw.HDFSDataPort, &cfg.Storage.DataPort)
	setInt("hdfs_web_port", raw.HDFSWebPort, &cfg.Storage.WebPort)
	for _, d := range []struct {
		key    string
		value  string
		target *time.Duration
	}{
		{"hdfs_settle", raw.HDFSSettle, &cfg.Storage.Settle},
		{"hdfs_timeout", raw.HDFSTimeout, &cfg.Storage.Timeout},
		{"rendezvous_poll", raw.RendezvousPoll, &cfg.Rendezvous.PollInterval},
		{"rendezvous_timeout", raw.RendezvousWait, &cfg.Rendezvous.Timeout},
		{"barrier_poll", raw.BarrierPoll, &cfg.Barrier.PollInterval},
		{"barrier_timeout", raw.BarrierWait, &cfg.Barrier.Timeout},
	} {
		if !meta.IsDefined(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return Config{}, fmt.Errorf("parse %v: %w", d.key, err)
		}
		*d.target = parsed
	}
	return cfg, nil
}

// WithEnviron overlays the recognised environment variables onto c.
func (c Config) WithEnviron(env allocation.Environ) (Config, error) {
	if v, ok := env.Lookup(EnvWorkdir); ok {
		c.Workdir = v
	}
	if v, ok := env.Lookup(EnvEnvScript); ok {
		c.EnvScript = v
	}
	if v, ok := env.Lookup(EnvExecute); ok {
		c.Job.Command = v
	}
	if v, ok := env.Lookup(EnvComputeHome); ok {
		c.Compute.Home = v
	}
	if v, ok := env.Lookup(EnvStorageHome); ok {
		c.Storage.Home = v
	}
	if v, ok := env.Lookup(EnvStorageHost); ok {
		c.Storage.Host = v
	}
	if v, ok := env.Lookup(EnvLocalDisk); ok {
		c.Storage.LocalDisk = v
	}
	if v, ok := env.Bool(EnvVerbose); ok {
		c.Verbose = v
	}
	for _, item := range []struct {
		key    string
		assign func(int)
	}{
		{EnvWorkerCores, func(v int) { c.Resources.Cores = intPtr(v) }},
		{EnvWorkerMemory, func(v int) { c.Resources.MemoryMB = intPtr(v) }},
		{EnvMasterMemory, func(v int) { c.Resources.ReservedLeaderMemoryMB = v }},
		{EnvMaxWorkers, func(v int) { c.Compute.MaxWorkers = v }},
	} {
		raw, ok := env.Lookup(item.key)
		if !ok {
			continue
		}
		v, ok := env.Int(item.key)
		if !ok {
			return Config{}, fmt.Errorf("invalid %v: %q", item.key, raw)
		}
		item.assign(v)
	}
	return c, nil
}

// Load resolves the configuration layers: defaults, the optional TOML file
// named by SM_CONFIG or configFile, then the environment snapshot.
func Load(configFile string, env allocation.Environ) (Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = env.Get(EnvConfig)
	}
	var err error
	if configFile != "" {
		if cfg, err = LoadFile(configFile, cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg.WithEnviron(env)
}

// SaveSnapshot writes cfg to <workdir>/session.yaml.
func SaveSnapshot(ctx context.Context, fs afs.Service, cfg Config) error {
	if cfg.Workdir == "" {
		return ErrMissingWorkdir
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	URL := path.Join(cfg.Workdir, model.SnapshotKey)
	if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the session snapshot of workdir.
func LoadSnapshot(ctx context.Context, fs afs.Service, workdir string) (Config, error) {
	if workdir == "" {
		return Config{}, ErrMissingWorkdir
	}
	URL := path.Join(workdir, model.SnapshotKey)
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read session snapshot %v: %w", URL, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode session snapshot %v: %w", URL, err)
	}
	cfg.Workdir = workdir
	return cfg, nil
}

func intPtr(v int) *int {
	return &v
}
