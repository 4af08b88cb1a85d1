package smcluster

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/smcluster/service/allocation"
)

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	valid.Workdir = "/w"
	negative := -1
	testCases := []struct {
		name      string
		mutate    func(c *Config)
		expectErr bool
		expectIs  error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing workdir", mutate: func(c *Config) { c.Workdir = "" }, expectErr: true, expectIs: ErrMissingWorkdir},
		{name: "bad port", mutate: func(c *Config) { c.Compute.Port = 0 }, expectErr: true},
		{name: "bad cores", mutate: func(c *Config) { c.Resources.Cores = &negative }, expectErr: true},
		{name: "bad reservation", mutate: func(c *Config) { c.Resources.ReservedLeaderMemoryMB = -1 }, expectErr: true},
		{name: "bad storage port", mutate: func(c *Config) { c.Storage.Home = "/opt/hadoop"; c.Storage.DataPort = 0 }, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := valid
			tc.mutate(&config)
			err := config.Validate()
			if !tc.expectErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tc.expectIs != nil {
				assert.ErrorIs(t, err, tc.expectIs)
			}
		})
	}
}

func TestConfig_WithEnviron(t *testing.T) {
	env := allocation.Environ{
		EnvWorkdir:      "/gpfs/session",
		EnvWorkerCores:  "12",
		EnvWorkerMemory: "20000",
		EnvMasterMemory: "2048",
		EnvStorageHome:  "/opt/hadoop",
		EnvLocalDisk:    "/nvme",
		EnvMaxWorkers:   "4",
		EnvExecute:      "spark-submit app.py",
		EnvVerbose:      "1",
		EnvComputeHome:  "/opt/spark",
		EnvEnvScript:    "/home/u/env.sh",
	}
	config, err := DefaultConfig().WithEnviron(env)
	require.NoError(t, err)
	assert.Equal(t, "/gpfs/session", config.Workdir)
	require.NotNil(t, config.Resources.Cores)
	assert.Equal(t, 12, *config.Resources.Cores)
	require.NotNil(t, config.Resources.MemoryMB)
	assert.Equal(t, 20000, *config.Resources.MemoryMB)
	assert.Equal(t, 2048, config.Resources.ReservedLeaderMemoryMB)
	assert.True(t, config.Storage.Enabled())
	assert.False(t, config.Storage.External())
	assert.Equal(t, "/nvme", config.Storage.LocalDisk)
	assert.Equal(t, 4, config.Compute.MaxWorkers)
	assert.Equal(t, "spark-submit app.py", config.Job.Command)
	assert.True(t, config.Verbose)
	assert.Equal(t, "/opt/spark", config.Compute.Home)
	assert.Equal(t, "/home/u/env.sh", config.EnvScript)

	_, err = DefaultConfig().WithEnviron(allocation.Environ{EnvWorkerCores: "many"})
	assert.Error(t, err)
}

func TestConfig_WithEnvironDefaults(t *testing.T) {
	config, err := DefaultConfig().WithEnviron(allocation.Environ{})
	require.NoError(t, err)
	assert.Equal(t, 4096, config.Resources.ReservedLeaderMemoryMB)
	assert.Nil(t, config.Resources.Cores)
	assert.False(t, config.Storage.Enabled())
}

func TestLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "smcluster.toml")
	content := `
workdir = "/from/file"
master_memory = 8192
hdfs_host = "storage.example"
rendezvous_timeout = "2m"
barrier_poll = "3s"
`
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))

	config, err := Load("", allocation.Environ{EnvConfig: filename, EnvWorkdir: "/from/env"})
	require.NoError(t, err)
	assert.Equal(t, "/from/env", config.Workdir)
	assert.Equal(t, 8192, config.Resources.ReservedLeaderMemoryMB)
	assert.True(t, config.Storage.External())
	assert.Equal(t, 2*time.Minute, config.Rendezvous.Timeout)
	assert.Equal(t, 3*time.Second, config.Barrier.PollInterval)
	assert.Equal(t, 7077, config.Compute.Port, "undefined keys keep defaults")
}

func TestLoadFile_InvalidDuration(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "smcluster.toml")
	require.NoError(t, os.WriteFile(filename, []byte(`barrier_timeout = "soon"`), 0o644))
	_, err := LoadFile(filename, DefaultConfig())
	assert.Error(t, err)
}

func TestConfig_Homes(t *testing.T) {
	config := DefaultConfig()
	assert.Empty(t, config.homes())

	config.Compute.Home = "/opt/spark"
	config.Storage.Home = "/opt/hadoop"
	assert.Equal(t, map[string]string{EnvComputeHome: "/opt/spark", EnvHadoopHome: "/opt/hadoop"}, config.homes())
}
