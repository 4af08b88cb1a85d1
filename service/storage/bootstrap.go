// Package storage brings up the optional distributed storage service: either
// client configuration for an external endpoint, or a co-located leader and
// followers started on the allocation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/smcluster/internal/logging"
	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/artifact"
	"github.com/viant/smcluster/service/launcher"
	"github.com/viant/smcluster/service/storage/siteconfig"
)

// ErrTimeout is returned when the readiness marker does not appear in time.
var ErrTimeout = errors.New("storage: timed out waiting for readiness marker")

// Role is the storage role a node-process ended up with.
type Role int

const (
	RoleNone Role = iota
	RoleExternal
	RoleLeader
	RoleFollower
)

var roleNames = [...]string{"none", "external", "leader", "follower"}

func (r Role) String() string {
	if int(r) < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// Config controls the storage service.
type Config struct {
	// Home is the storage distribution; empty disables storage.
	Home string `yaml:"home,omitempty"`
	// Host names an external storage endpoint.
	Host string `yaml:"host,omitempty"`
	// LocalDisk is the node-local root for follower data and scratch directories.
	LocalDisk          string        `yaml:"localDisk,omitempty"`
	DataPort           int           `yaml:"dataPort"`
	WebPort            int           `yaml:"webPort"`
	SecondaryWebPort   int           `yaml:"secondaryWebPort"`
	MaxTransferThreads int           `yaml:"maxTransferThreads"`
	Settle             time.Duration `yaml:"settle"`
	PollInterval       time.Duration `yaml:"pollInterval"`
	// Timeout bounds the follower wait for the readiness marker; zero waits until ctx is done.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default storage settings.
func DefaultConfig() Config {
	return Config{
		LocalDisk:          "/tmp",
		DataPort:           8020,
		WebPort:            50070,
		SecondaryWebPort:   50090,
		MaxTransferThreads: 8192,
		Settle:             10 * time.Second,
		PollInterval:       time.Second,
		Timeout:            10 * time.Minute,
	}
}

// Enabled reports whether storage is configured at all.
func (c Config) Enabled() bool {
	return c.Home != "" || c.Host != ""
}

// External reports whether an external endpoint is used.
func (c Config) External() bool {
	return c.Host != ""
}

// Service bootstraps storage for one node-process.
type Service struct {
	session  model.Session
	store    artifact.Store
	fs       afs.Service
	writer   *siteconfig.Writer
	launcher launcher.Launcher
	config   Config
	logger   *logrus.Entry
	role     Role
	mux      sync.Mutex
}

// New creates a storage Service.
func New(session model.Session, store artifact.Store, fs afs.Service, launch launcher.Launcher, config Config, logger *logrus.Entry) *Service {
	if fs == nil {
		fs = afs.New()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	return &Service{
		session:  session,
		store:    store,
		fs:       fs,
		writer:   siteconfig.NewWriter(fs, logger),
		launcher: launch,
		config:   config,
		logger:   logger.WithField("component", "storage"),
	}
}

// Bootstrap engages the storage role of rank. leaderHost is the host of the
// election rank, where a co-located storage leader runs.
func (s *Service) Bootstrap(ctx context.Context, rank int, isElectionRank bool, leaderHost string) (Role, error) {
	var role Role
	var err error
	switch {
	case !s.config.Enabled():
		return RoleNone, nil
	case s.config.External():
		role, err = s.external(ctx)
	case isElectionRank:
		role, err = s.leader(ctx, rank, leaderHost)
	default:
		role, err = s.follower(ctx, rank, leaderHost)
	}
	if err != nil {
		return RoleNone, err
	}
	s.mux.Lock()
	s.role = role
	s.mux.Unlock()
	return role, nil
}

// Stop stops the daemon Bootstrap started, if any.
func (s *Service) Stop(ctx context.Context) error {
	s.mux.Lock()
	role := s.role
	s.role = RoleNone
	s.mux.Unlock()
	switch role {
	case RoleLeader:
		return s.launcher.Stop(ctx, launcher.StorageLeader)
	case RoleFollower:
		return s.launcher.Stop(ctx, launcher.StorageFollower)
	}
	return nil
}

func (s *Service) external(ctx context.Context) (Role, error) {
	site := s.site(s.config.Host)
	dir := s.session.Path(s.session.ConfDir(model.ElectionRank, true))
	if err := s.writer.Write(ctx, dir, site); err != nil {
		return RoleNone, err
	}
	s.logger.WithField("uri", site.DefaultFS).Info("using external storage")
	return RoleExternal, nil
}

func (s *Service) leader(ctx context.Context, rank int, host string) (Role, error) {
	nameDir := s.session.Path(s.session.NameDir())
	if err := s.recreate(ctx, nameDir); err != nil {
		return RoleNone, err
	}
	site := s.site(host)
	site.NameDir = nameDir
	site.TmpDir = path.Join(s.scratch(rank), "tmp")
	confDir := s.session.Path(s.session.ConfDir(rank, true))
	if err := s.writer.Write(ctx, confDir, site); err != nil {
		return RoleNone, err
	}
	params := launcher.Params{ConfDir: confDir, LogDir: s.session.LogDir()}
	if err := s.launcher.Start(ctx, launcher.StorageFormat, params); err != nil {
		return RoleNone, fmt.Errorf("failed to format storage: %w", err)
	}
	if err := s.launcher.Start(ctx, launcher.StorageLeader, params); err != nil {
		return RoleNone, fmt.Errorf("failed to start storage leader: %w", err)
	}
	if err := sleep(ctx, s.config.Settle); err != nil {
		return RoleNone, err
	}
	err := s.store.PutIfAbsent(ctx, model.StorageMarkerKey, nil)
	if errors.Is(err, artifact.ErrExists) {
		s.logger.Warn("storage readiness marker already present")
	} else if err != nil {
		return RoleNone, fmt.Errorf("failed to write readiness marker: %w", err)
	}
	s.logger.WithField("uri", site.DefaultFS).Info("storage leader ready")
	return RoleLeader, nil
}

func (s *Service) follower(ctx context.Context, rank int, host string) (Role, error) {
	_, err := artifact.Wait(ctx, s.store, model.StorageMarkerKey, artifact.WaitOptions{
		Interval: s.config.PollInterval,
		Timeout:  s.config.Timeout,
	})
	if errors.Is(err, artifact.ErrTimeout) {
		return RoleNone, fmt.Errorf("%w after %s", ErrTimeout, s.config.Timeout)
	}
	if err != nil {
		return RoleNone, err
	}
	scratch := s.scratch(rank)
	dataDir, tmpDir := path.Join(scratch, "data"), path.Join(scratch, "tmp")
	for _, dir := range []string{dataDir, tmpDir} {
		if err := s.recreate(ctx, dir); err != nil {
			return RoleNone, err
		}
	}
	site := s.site(host)
	site.DataDir = dataDir
	site.TmpDir = tmpDir
	confDir := s.session.Path(s.session.ConfDir(rank, false))
	if err := s.writer.Write(ctx, confDir, site); err != nil {
		return RoleNone, err
	}
	params := launcher.Params{ConfDir: confDir, LogDir: s.session.LogDir()}
	if err := s.launcher.Start(ctx, launcher.StorageFollower, params); err != nil {
		return RoleNone, fmt.Errorf("failed to start storage follower: %w", err)
	}
	return RoleFollower, nil
}

func (s *Service) site(host string) siteconfig.Site {
	return siteconfig.Site{
		DefaultFS:            "hdfs://" + net.JoinHostPort(host, strconv.Itoa(s.config.DataPort)),
		HTTPAddress:          net.JoinHostPort(host, strconv.Itoa(s.config.WebPort)),
		SecondaryHTTPAddress: net.JoinHostPort(host, strconv.Itoa(s.config.SecondaryWebPort)),
		MaxTransferThreads:   s.config.MaxTransferThreads,
	}
}

// scratch returns the node-and-job scoped local directory of rank.
func (s *Service) scratch(rank int) string {
	return path.Join(s.config.LocalDisk, fmt.Sprintf("hadoop-%s-%d", s.session.JobID, rank))
}

func (s *Service) recreate(ctx context.Context, dir string) error {
	if exists, _ := s.fs.Exists(ctx, dir); exists {
		if err := s.fs.Delete(ctx, dir); err != nil {
			return fmt.Errorf("failed to remove %v: %w", dir, err)
		}
	}
	if err := s.fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
		return fmt.Errorf("failed to create %v: %w", dir, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
