package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/viant/smcluster"
	"github.com/viant/smcluster/service/allocation"
)

type fakeRunner struct {
	cfg      smcluster.Config
	argv     []string
	code     int
	err      error
	ranNode  bool
	shutdown bool
	closed   bool
}

func (f *fakeRunner) Run(_ context.Context, nodeArgv []string) (int, error) {
	f.argv = nodeArgv
	return f.code, f.err
}

func (f *fakeRunner) Node(context.Context) (int, error) {
	f.ranNode = true
	return f.code, f.err
}

func (f *fakeRunner) Shutdown(context.Context) error {
	f.shutdown = true
	return f.err
}

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

func stubFactories(t *testing.T, env allocation.Environ, runner *fakeRunner) {
	t.Helper()
	origEnviron, origExecutable, origService, origHostname := environ, executable, newService, hostname
	t.Cleanup(func() {
		environ, executable, newService, hostname = origEnviron, origExecutable, origService, origHostname
	})
	environ = func() allocation.Environ { return env }
	executable = func() (string, error) { return "/opt/bin/smcluster", nil }
	hostname = func() (string, error) { return "node1", nil }
	newService = func(cfg smcluster.Config, _ ...smcluster.Option) Runner {
		runner.cfg = cfg
		return runner
	}
}

func TestDispatch_Run(t *testing.T) {
	workdir := t.TempDir()
	runner := &fakeRunner{code: 3}
	stubFactories(t, allocation.Environ{smcluster.EnvWorkerCores: "8"}, runner)

	code, err := Dispatch(context.Background(), Run, &Request{
		Workdir:  workdir,
		MemoryMB: 2048,
		Job:      []string{"spark-submit", "--name", "my app"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, []string{"/opt/bin/smcluster", "node", workdir}, runner.argv)
	assert.Equal(t, "'spark-submit' '--name' 'my app'", runner.cfg.Job.Command)
	require.NotNil(t, runner.cfg.Resources.Cores)
	assert.Equal(t, 8, *runner.cfg.Resources.Cores)
	require.NotNil(t, runner.cfg.Resources.MemoryMB)
	assert.Equal(t, 2048, *runner.cfg.Resources.MemoryMB)
	assert.NotEmpty(t, runner.cfg.RunID)
	assert.True(t, runner.closed)
}

func TestDispatch_RunRequiresJob(t *testing.T) {
	runner := &fakeRunner{}
	stubFactories(t, allocation.Environ{}, runner)

	code, err := Dispatch(context.Background(), Run, &Request{Workdir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, smcluster.ExitStartupFailure, code)
	assert.Nil(t, runner.argv)
}

func TestDispatch_MissingWorkdir(t *testing.T) {
	runner := &fakeRunner{}
	stubFactories(t, allocation.Environ{}, runner)

	_, err := Dispatch(context.Background(), Startup, &Request{})
	assert.ErrorIs(t, err, smcluster.ErrMissingWorkdir)
	assert.Nil(t, runner.argv)
}

func TestDispatch_StartupIgnoresExecute(t *testing.T) {
	runner := &fakeRunner{}
	stubFactories(t, allocation.Environ{smcluster.EnvExecute: "spark-submit app.py"}, runner)

	code, err := Dispatch(context.Background(), Startup, &Request{Workdir: t.TempDir(), EnvScript: "/opt/env.sh"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Empty(t, runner.cfg.Job.Command)
	assert.Equal(t, "/opt/env.sh", runner.cfg.EnvScript)
}

func TestDispatch_StorageFlags(t *testing.T) {
	testCases := []struct {
		description string
		request     Request
		expectHome  string
		expectHost  string
	}{
		{
			description: "hadoop home from environment",
			request:     Request{UseHadoopHome: true},
			expectHome:  "/opt/hadoop",
		},
		{
			description: "explicit home",
			request:     Request{StorageHome: "/apps/hadoop"},
			expectHome:  "/apps/hadoop",
		},
		{
			description: "external namenode",
			request:     Request{StorageHost: "nn01"},
			expectHost:  "nn01",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			runner := &fakeRunner{}
			stubFactories(t, allocation.Environ{smcluster.EnvHadoopHome: "/opt/hadoop"}, runner)
			request := testCase.request
			request.Workdir = t.TempDir()
			_, err := Dispatch(context.Background(), Startup, &request)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectHome, runner.cfg.Storage.Home)
			assert.Equal(t, testCase.expectHost, runner.cfg.Storage.Host)
		})
	}
}

func TestDispatch_ShutdownUsesSnapshot(t *testing.T) {
	ctx := context.Background()
	workdir := t.TempDir()
	snapshot := smcluster.DefaultConfig()
	snapshot.Workdir = workdir
	snapshot.Storage.Home = "/opt/hadoop"
	require.NoError(t, smcluster.SaveSnapshot(ctx, afs.New(), snapshot))
	runner := &fakeRunner{}
	stubFactories(t, allocation.Environ{}, runner)

	code, err := Dispatch(ctx, Shutdown, &Request{Workdir: workdir})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.True(t, runner.shutdown)
	assert.Equal(t, "/opt/hadoop", runner.cfg.Storage.Home)
}

func TestDispatch_ShutdownFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("sentinel write failed")}
	stubFactories(t, allocation.Environ{}, runner)

	code, err := Dispatch(context.Background(), Shutdown, &Request{Workdir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, smcluster.ExitStartupFailure, code)
}

func TestDispatch_Node(t *testing.T) {
	ctx := context.Background()
	workdir := t.TempDir()
	snapshot := smcluster.DefaultConfig()
	snapshot.Workdir = workdir
	snapshot.Job.Command = "spark-submit app.py"
	require.NoError(t, smcluster.SaveSnapshot(ctx, afs.New(), snapshot))
	runner := &fakeRunner{code: 5}
	stubFactories(t, allocation.Environ{}, runner)

	code, err := Dispatch(ctx, Node, &Request{Workdir: workdir})
	require.NoError(t, err)
	assert.Equal(t, 5, code)
	assert.True(t, runner.ranNode)
	assert.Equal(t, "spark-submit app.py", runner.cfg.Job.Command)
}

func TestDispatch_NodeWithoutSnapshot(t *testing.T) {
	runner := &fakeRunner{}
	stubFactories(t, allocation.Environ{}, runner)

	code, err := Dispatch(context.Background(), Node, &Request{Workdir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, smcluster.ExitStartupFailure, code)
	assert.False(t, runner.ranNode)
}

func TestParseCommand(t *testing.T) {
	command, err := ParseCommand("shutdown")
	require.NoError(t, err)
	assert.Equal(t, Shutdown, command)

	_, err = ParseCommand("restart")
	assert.ErrorIs(t, err, smcluster.ErrUnknownCommand)

	_, err = Dispatch(context.Background(), Command(42), &Request{})
	assert.ErrorIs(t, err, smcluster.ErrUnknownCommand)
}

func TestFromInvokedName(t *testing.T) {
	testCases := []struct {
		name    string
		expect  Command
		matched bool
	}{
		{name: "sm_run", expect: Run, matched: true},
		{name: "sm_startup", expect: Startup, matched: true},
		{name: "sm_shutdown", expect: Shutdown, matched: true},
		{name: "sm_node"},
		{name: "smcluster"},
		{name: "sm_stop"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command, ok := FromInvokedName(testCase.name)
			assert.Equal(t, testCase.matched, ok)
			if ok {
				assert.Equal(t, testCase.expect, command)
			}
		})
	}
}

func TestRequest_JobCommand(t *testing.T) {
	assert.Equal(t, "spark-submit app.py", (&Request{Job: []string{"spark-submit app.py"}}).JobCommand())
	assert.Equal(t, "'echo' 'it'\\''s'", (&Request{Job: []string{"echo", "it's"}}).JobCommand())
}
