package launcher

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/smcluster/service/shell"
)

// Runner executes a shell command on the local machine.
type Runner interface {
	Run(ctx context.Context, host string, command string) (*shell.Result, error)
}

// ShellConfig locates the daemon distributions.
type ShellConfig struct {
	ComputeHome string
	StorageHome string
	// EnvScript is sourced once before the first daemon command.
	EnvScript string
}

// Shell launches daemons through their start/stop scripts.
type Shell struct {
	config  ShellConfig
	runner  Runner
	logger  *logrus.Entry
	sourced bool
	started map[Daemon]Params
	mux     sync.Mutex
}

// NewShell creates a shell launcher running commands with runner.
func NewShell(config ShellConfig, runner Runner, logger *logrus.Entry) *Shell {
	return &Shell{config: config, runner: runner, logger: logger, started: map[Daemon]Params{}}
}

// Start runs the start script of daemon.
func (s *Shell) Start(ctx context.Context, daemon Daemon, params Params) error {
	command, err := s.StartCommand(daemon, params)
	if err != nil {
		return err
	}
	if err = s.run(ctx, daemon, command); err != nil {
		return err
	}
	s.mux.Lock()
	s.started[daemon] = params
	s.mux.Unlock()
	return nil
}

// Stop runs the stop script of a daemon previously started.
func (s *Shell) Stop(ctx context.Context, daemon Daemon) error {
	s.mux.Lock()
	params, ok := s.started[daemon]
	delete(s.started, daemon)
	s.mux.Unlock()
	if !ok {
		return nil
	}
	command := s.StopCommand(daemon, params)
	if command == "" {
		return nil
	}
	return s.run(ctx, daemon, command)
}

func (s *Shell) run(ctx context.Context, daemon Daemon, command string) error {
	if err := s.source(ctx); err != nil {
		return err
	}
	s.logger.WithField("daemon", daemon.String()).Debug(command)
	result, err := s.runner.Run(ctx, shell.Localhost, command)
	if err != nil {
		return fmt.Errorf("%v: %w", daemon, err)
	}
	if result.Status != 0 {
		return fmt.Errorf("%w: %v exited with %d: %s", ErrCommandFailed, daemon, result.Status, result.Stdout)
	}
	return nil
}

func (s *Shell) source(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.sourced || s.config.EnvScript == "" {
		return nil
	}
	result, err := s.runner.Run(ctx, shell.Localhost, ". "+shell.Quote(s.config.EnvScript))
	if err != nil {
		return fmt.Errorf("failed to source %v: %w", s.config.EnvScript, err)
	}
	if result.Status != 0 {
		return fmt.Errorf("%w: source %v exited with %d", ErrCommandFailed, s.config.EnvScript, result.Status)
	}
	s.sourced = true
	return nil
}

// StartCommand renders the start command of daemon.
func (s *Shell) StartCommand(daemon Daemon, params Params) (string, error) {
	switch daemon {
	case ComputeLeader, ComputeFollower:
		if s.config.ComputeHome == "" {
			return "", fmt.Errorf("%v: compute home is not set", daemon)
		}
	default:
		if s.config.StorageHome == "" {
			return "", fmt.Errorf("%v: storage home is not set", daemon)
		}
		if params.ConfDir == "" {
			return "", fmt.Errorf("%v: configuration directory is not set", daemon)
		}
	}
	env := daemonEnv(daemon, params)
	var command string
	switch daemon {
	case ComputeLeader:
		command = s.sbin("start-master.sh")
	case ComputeFollower:
		command = fmt.Sprintf("%s %s -c %d -m %dM -d %s", s.sbin("start-worker.sh"), params.MasterURL, params.Cores, params.MemoryMB, shell.Quote(params.WorkDir))
	case StorageFormat:
		command = s.hdfs(params.ConfDir, "namenode -format -force -nonInteractive")
	case StorageLeader:
		command = s.hdfs(params.ConfDir, "--daemon start namenode")
	case StorageFollower:
		command = s.hdfs(params.ConfDir, "--daemon start datanode")
	default:
		return "", fmt.Errorf("unsupported daemon: %v", daemon)
	}
	return exports(env) + command, nil
}

// StopCommand renders the stop command of daemon; formatting has none.
func (s *Shell) StopCommand(daemon Daemon, params Params) string {
	switch daemon {
	case ComputeLeader:
		return s.sbin("stop-master.sh")
	case ComputeFollower:
		return s.sbin("stop-worker.sh")
	case StorageLeader:
		return exports(daemonEnv(daemon, params)) + s.hdfs(params.ConfDir, "--daemon stop namenode")
	case StorageFollower:
		return exports(daemonEnv(daemon, params)) + s.hdfs(params.ConfDir, "--daemon stop datanode")
	}
	return ""
}

func (s *Shell) sbin(script string) string {
	return shell.Quote(path.Join(s.config.ComputeHome, "sbin", script))
}

func (s *Shell) hdfs(confDir string, args string) string {
	return fmt.Sprintf("%s --config %s %s", shell.Quote(path.Join(s.config.StorageHome, "bin", "hdfs")), shell.Quote(confDir), args)
}

func daemonEnv(daemon Daemon, params Params) map[string]string {
	env := map[string]string{}
	switch daemon {
	case ComputeLeader:
		env["SPARK_MASTER_HOST"] = params.Host
		env["SPARK_MASTER_PORT"] = fmt.Sprint(params.Port)
		env["SPARK_MASTER_WEBUI_PORT"] = fmt.Sprint(params.WebPort)
		fallthrough
	case ComputeFollower:
		setIf(env, "SPARK_LOG_DIR", params.LogDir)
		setIf(env, "SPARK_WORKER_DIR", params.WorkDir)
	default:
		env["HADOOP_CONF_DIR"] = params.ConfDir
		setIf(env, "HADOOP_LOG_DIR", params.LogDir)
	}
	return env
}

func setIf(env map[string]string, key, value string) {
	if value != "" {
		env[key] = value
	}
}

func exports(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var builder strings.Builder
	for _, k := range keys {
		builder.WriteString("export ")
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(shell.Quote(env[k]))
		builder.WriteString("; ")
	}
	return builder.String()
}
