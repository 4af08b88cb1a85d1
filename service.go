package smcluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/smcluster/internal/logging"
	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/allocation"
	"github.com/viant/smcluster/service/artifact"
	afsstore "github.com/viant/smcluster/service/artifact/fs"
	"github.com/viant/smcluster/service/barrier"
	"github.com/viant/smcluster/service/job"
	"github.com/viant/smcluster/service/launcher"
	"github.com/viant/smcluster/service/rendezvous"
	"github.com/viant/smcluster/service/resource"
	"github.com/viant/smcluster/service/shell"
)

// Service is the cluster bootstrap facade.
type Service struct {
	config   Config
	env      allocation.Environ
	fs       afs.Service
	store    artifact.Store
	launcher launcher.Launcher
	prober   rendezvous.Prober
	memory   resource.MemoryDetector
	runner   job.Runner
	logger   *logrus.Logger
	shell    *shell.Service
	hostname string
	version  string
}

// New creates a Service for the resolved configuration.
func New(config Config, options ...Option) *Service {
	ret := &Service{config: config}
	for _, option := range options {
		option(ret)
	}
	ret.ensureBaseSetup()
	return ret
}

// Config returns the session configuration.
func (s *Service) Config() Config {
	return s.config
}

func (s *Service) ensureBaseSetup() {
	if s.env == nil {
		s.env = allocation.Environ{}
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.logger == nil {
		s.logger = logging.New(logging.ProfileRuntime, logging.Options{Verbose: s.config.Verbose})
	}
	if s.memory == nil {
		s.memory = resource.ProcMemory{}
	}
	if s.runner == nil {
		s.runner = job.NewExec(logrus.NewEntry(s.logger))
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.launcher != nil && s.prober != nil {
		return
	}
	var shellOptions []shell.Option
	if env := s.config.homes(); len(env) > 0 {
		shellOptions = append(shellOptions, shell.WithEnvironment(env))
	}
	if s.config.Compute.ProbeCredentials != "" {
		shellOptions = append(shellOptions, shell.WithCredentials(s.config.Compute.ProbeCredentials))
	}
	s.shell = shell.New(shellOptions...)
	if s.launcher == nil {
		s.launcher = launcher.NewShell(launcher.ShellConfig{
			ComputeHome: s.config.Compute.Home,
			StorageHome: s.config.Storage.Home,
			EnvScript:   s.config.EnvScript,
		}, s.shell, logrus.NewEntry(s.logger))
	}
	if s.prober == nil {
		s.prober = &rendezvous.ProcessProbe{
			Pattern:    s.config.Compute.ProbePattern,
			LocalHosts: []string{s.hostname},
			Runner:     s.shell,
			Retries:    s.config.Compute.ProbeRetries,
		}
	}
}

// Close releases the shell sessions held by the service.
func (s *Service) Close() error {
	if s.shell == nil {
		return nil
	}
	return s.shell.Close()
}

func (s *Service) artifacts(ctx context.Context) (artifact.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	store, err := afsstore.New(ctx, s.config.Workdir, afsstore.WithFS(s.fs))
	if err != nil {
		return nil, fmt.Errorf("failed to open workdir %v: %w", s.config.Workdir, err)
	}
	s.store = store
	return store, nil
}

func (s *Service) ensureDirs(ctx context.Context, session model.Session) error {
	for _, dir := range []string{session.LogDir(), session.WorkDir()} {
		if exists, _ := s.fs.Exists(ctx, dir); exists {
			continue
		}
		if err := s.fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return fmt.Errorf("failed to create %v: %w", dir, err)
		}
	}
	return nil
}

// Reset prepares the workdir for a new session: it removes coordination
// artifacts left by an earlier session and writes the session snapshot.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	store, err := s.artifacts(ctx)
	if err != nil {
		return err
	}
	for _, key := range []string{model.AddressKey, model.StorageMarkerKey} {
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to remove stale %v: %w", key, err)
		}
	}
	if err := barrier.New(store, s.config.Barrier, nil).Reset(ctx); err != nil {
		return fmt.Errorf("failed to remove stale sentinel: %w", err)
	}
	return SaveSnapshot(ctx, s.fs, s.config)
}

// Run resets the session and starts one node-process per allocated machine
// through the scheduler's task launcher. It returns the session exit code.
func (s *Service) Run(ctx context.Context, nodeArgv []string) (int, error) {
	kind, err := allocation.Detect(s.env)
	if err != nil {
		return ExitUnsupportedEnvironment, &ExitError{Code: ExitUnsupportedEnvironment, Err: err}
	}
	if err := s.Reset(ctx); err != nil {
		return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
	}
	argv, err := allocation.FanOut(kind, s.env, nodeArgv)
	if err != nil {
		return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
	}
	s.logger.WithField("scheduler", kind).WithField("command", argv).Info("starting node-processes")
	code, err := s.runner.Run(ctx, argv, nil)
	if err != nil {
		return code, &ExitError{Code: code, Err: err}
	}
	return code, nil
}

// Shutdown releases a session started without a job: every blocked
// node-process exits with code 0.
func (s *Service) Shutdown(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	store, err := s.artifacts(ctx)
	if err != nil {
		return err
	}
	err = barrier.New(store, s.config.Barrier, logrus.NewEntry(s.logger)).Signal(ctx, 0)
	if errors.Is(err, barrier.ErrAlreadySignaled) {
		s.logger.Warn("session already completed")
		return nil
	}
	return err
}
