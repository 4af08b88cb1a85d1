package smcluster

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/smcluster/service/allocation"
	"github.com/viant/smcluster/service/artifact"
	"github.com/viant/smcluster/service/job"
	"github.com/viant/smcluster/service/launcher"
	"github.com/viant/smcluster/service/rendezvous"
	"github.com/viant/smcluster/service/resource"
)

// Option customises a Service.
type Option func(s *Service)

// WithEnviron sets the environment snapshot scheduler detection reads.
func WithEnviron(env allocation.Environ) Option {
	return func(s *Service) { s.env = env }
}

// WithFS sets the file system used for the workdir.
func WithFS(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithStore sets the artifact store; defaults to the workdir store.
func WithStore(store artifact.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithLauncher sets the daemon launcher; defaults to the shell launcher.
func WithLauncher(l launcher.Launcher) Option {
	return func(s *Service) { s.launcher = l }
}

// WithProber sets the leader liveness prober.
func WithProber(prober rendezvous.Prober) Option {
	return func(s *Service) { s.prober = prober }
}

// WithMemoryDetector sets the available memory detector.
func WithMemoryDetector(detector resource.MemoryDetector) Option {
	return func(s *Service) { s.memory = detector }
}

// WithJobRunner sets the runner of the job command and the fan-out.
func WithJobRunner(runner job.Runner) Option {
	return func(s *Service) { s.runner = runner }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithHostname sets the local host name used when the scheduler reports none.
func WithHostname(hostname string) Option {
	return func(s *Service) { s.hostname = hostname }
}

// WithVersion sets the version recorded in reports and traces.
func WithVersion(version string) Option {
	return func(s *Service) { s.version = version }
}
