package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/smcluster"
	"github.com/viant/smcluster/internal/idgen"
	"github.com/viant/smcluster/internal/logging"
	"github.com/viant/smcluster/service/allocation"
)

// Runner is the part of smcluster.Service the handlers drive.
type Runner interface {
	Run(ctx context.Context, nodeArgv []string) (int, error)
	Node(ctx context.Context) (int, error)
	Shutdown(ctx context.Context) error
	Close() error
}

// Factory function variables; replaced in tests.
var (
	environ = func() allocation.Environ {
		return allocation.ParseEnviron(os.Environ())
	}

	executable = os.Executable

	hostname = os.Hostname

	newService = func(cfg smcluster.Config, options ...smcluster.Option) Runner {
		return smcluster.New(cfg, options...)
	}

	fs = afs.New()

	version = "dev"
)

// SetVersion sets the version recorded by node-processes.
func SetVersion(v string) {
	version = v
}

func handleRun(ctx context.Context, request *Request) (int, error) {
	if len(request.Job) == 0 {
		return smcluster.ExitStartupFailure, fmt.Errorf("job command is required")
	}
	return launch(ctx, request)
}

func handleStartup(ctx context.Context, request *Request) (int, error) {
	request.Job = nil
	return launch(ctx, request)
}

func launch(ctx context.Context, request *Request) (int, error) {
	env := environ()
	cfg, err := resolve(request, env)
	if err != nil {
		return smcluster.ExitStartupFailure, err
	}
	if request.Job == nil {
		cfg.Job.Command = ""
	}
	cfg.RunID = idgen.New()
	exe, err := executable()
	if err != nil {
		return smcluster.ExitStartupFailure, fmt.Errorf("failed to locate executable: %w", err)
	}
	logger := newLogger(cfg)
	logger.WithFields(logrus.Fields{"workdir": cfg.Workdir, "run": cfg.RunID}).Info("starting session")
	srv := newService(cfg, smcluster.WithEnviron(env), smcluster.WithFS(fs), smcluster.WithLogger(logger), smcluster.WithVersion(version))
	defer srv.Close()
	return srv.Run(ctx, []string{exe, Node.String(), cfg.Workdir})
}

func handleShutdown(ctx context.Context, request *Request) (int, error) {
	env := environ()
	cfg, err := resolve(request, env)
	if err != nil {
		return smcluster.ExitStartupFailure, err
	}
	if snapshot, err := smcluster.LoadSnapshot(ctx, fs, cfg.Workdir); err == nil {
		cfg = snapshot
	}
	srv := newService(cfg, smcluster.WithEnviron(env), smcluster.WithFS(fs), smcluster.WithLogger(newLogger(cfg)))
	defer srv.Close()
	if err := srv.Shutdown(ctx); err != nil {
		return smcluster.ExitStartupFailure, err
	}
	return 0, nil
}

func handleNode(ctx context.Context, request *Request) (int, error) {
	if request.Workdir == "" {
		return smcluster.ExitStartupFailure, smcluster.ErrMissingWorkdir
	}
	cfg, err := smcluster.LoadSnapshot(ctx, fs, request.Workdir)
	if err != nil {
		return smcluster.ExitStartupFailure, err
	}
	name, _ := hostname()
	srv := newService(cfg,
		smcluster.WithEnviron(environ()),
		smcluster.WithFS(fs),
		smcluster.WithLogger(newLogger(cfg)),
		smcluster.WithHostname(name),
		smcluster.WithVersion(version),
	)
	defer srv.Close()
	return srv.Node(ctx)
}

func resolve(request *Request, env allocation.Environ) (smcluster.Config, error) {
	cfg, err := smcluster.Load(request.ConfigFile, env)
	if err != nil {
		return smcluster.Config{}, err
	}
	cfg = request.Apply(cfg, env)
	if err := cfg.Validate(); err != nil {
		return smcluster.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg smcluster.Config) *logrus.Logger {
	return logging.New(logging.ProfileRuntime, logging.Options{Verbose: cfg.Verbose})
}
