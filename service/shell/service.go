// Package shell runs commands in persistent gosh sessions, one per host.
package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"github.com/viant/scy/cred/secret"
	"golang.org/x/crypto/ssh"
)

// Localhost names the local session.
const Localhost = "localhost"

// Result is the outcome of one command.
type Result struct {
	Stdout string
	Status int
}

// session is a gosh shell; it runs one command at a time.
type session struct {
	*gosh.Service
	mux sync.Mutex
}

func (s *session) run(ctx context.Context, command string, options ...runner.Option) (string, int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.Run(ctx, command, options...)
}

// Service keeps one shell session per host. Commands for the same host are
// serialised on its session.
type Service struct {
	sessions    map[string]*session
	env         map[string]string
	credentials string
	timeout     time.Duration
	mux         sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithEnvironment exports env in every session the service opens.
func WithEnvironment(env map[string]string) Option {
	return func(s *Service) {
		s.env = env
	}
}

// WithCredentials sets the scy credentials reference used for remote
// sessions. Without it remote commands go through the local ssh client.
func WithCredentials(ref string) Option {
	return func(s *Service) {
		s.credentials = ref
	}
}

// WithTimeout bounds every command; defaults to one minute.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.timeout = timeout
	}
}

// New creates a Service.
func New(options ...Option) *Service {
	ret := &Service{
		sessions: make(map[string]*session),
		timeout:  time.Minute,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Run executes command on host. A non-zero status is not an error.
func (s *Service) Run(ctx context.Context, host string, command string) (*Result, error) {
	if host == "" {
		host = Localhost
	}
	if !IsLocal(host) && s.credentials == "" {
		command = RemoteCommand(host, command)
		host = Localhost
	}
	sess, err := s.session(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %v: %w", host, err)
	}
	started := time.Now()
	stdout, status, err := sess.run(ctx, command, runner.WithTimeout(int(s.timeout.Milliseconds())))
	if elapsed := time.Since(started); elapsed > s.timeout && err == nil {
		err = fmt.Errorf("command %v timed out after: %s", command, elapsed)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Stdout: strings.TrimSpace(stdout), Status: status}, nil
}

// IsLocal reports whether host designates the local machine.
func IsLocal(host string) bool {
	return host == Localhost || host == "127.0.0.1"
}

// RemoteCommand wraps command for execution through the ssh client.
func RemoteCommand(host, command string) string {
	return fmt.Sprintf("ssh -o BatchMode=yes -o StrictHostKeyChecking=no %s %s", host, Quote(command))
}

// Quote single-quotes value for the shell.
func Quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

func (s *Service) session(ctx context.Context, host string) (*session, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok := s.sessions[host]; ok {
		return ret, nil
	}
	var envOptions []runner.Option
	if len(s.env) > 0 {
		envOptions = append(envOptions, runner.WithEnvironment(s.env))
	}
	var shell *gosh.Service
	var err error
	if IsLocal(host) {
		shell, err = gosh.New(ctx, local.New(envOptions...))
	} else {
		config, cErr := s.sshConfig(ctx)
		if cErr != nil {
			return nil, fmt.Errorf("failed to get SSH config: %w", cErr)
		}
		sshHost := host
		if !strings.Contains(sshHost, ":") {
			sshHost += ":22"
		}
		shell, err = gosh.New(ctx, rssh.New(sshHost, config, envOptions...))
	}
	if err != nil {
		return nil, err
	}
	ret := &session{Service: shell}
	s.sessions[host] = ret
	return ret, nil
}

func (s *Service) sshConfig(ctx context.Context) (*ssh.ClientConfig, error) {
	secrets := secret.New()
	generic, err := secrets.GetCredentials(ctx, s.credentials)
	if err != nil {
		return nil, err
	}
	return generic.SSH.Config(ctx)
}

// Close releases all sessions.
func (s *Service) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	var errs []string
	for id, sess := range s.sessions {
		if err := sess.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("failed to close session %s: %v", id, err))
		}
	}
	s.sessions = make(map[string]*session)
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sessions: %s", strings.Join(errs, "; "))
	}
	return nil
}
