// Package barrier propagates the job exit code to every node-process through
// the sentinel artifact.
package barrier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/smcluster/internal/logging"
	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/artifact"
)

var (
	// ErrAlreadySignaled is returned by Signal when the sentinel exists; the
	// stored code is left unchanged.
	ErrAlreadySignaled = errors.New("barrier: already signaled")

	// ErrTimeout is returned by Await when the sentinel does not appear in time.
	ErrTimeout = errors.New("barrier: timed out waiting for completion")
)

// Config controls sentinel polling.
type Config struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	// Timeout bounds Await; zero waits until ctx is done.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default polling settings.
func DefaultConfig() Config {
	return Config{PollInterval: 10 * time.Second}
}

// Barrier is the shutdown barrier of one session.
type Barrier struct {
	store  artifact.Store
	config Config
	logger *logrus.Entry
}

// New creates a Barrier.
func New(store artifact.Store, config Config, logger *logrus.Entry) *Barrier {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Barrier{store: store, config: config, logger: logger}
}

// Signal records the session exit code.
func (b *Barrier) Signal(ctx context.Context, code int) error {
	err := b.store.PutIfAbsent(ctx, model.SentinelKey, []byte(strconv.Itoa(code)+"\n"))
	if errors.Is(err, artifact.ErrExists) {
		return fmt.Errorf("%w: code %d not recorded", ErrAlreadySignaled, code)
	}
	if err != nil {
		return fmt.Errorf("failed to write sentinel: %w", err)
	}
	b.logger.WithField("code", code).Info("completion signaled")
	return nil
}

// Await blocks until the sentinel exists and returns the recorded code.
func (b *Barrier) Await(ctx context.Context) (int, error) {
	data, err := artifact.Wait(ctx, b.store, model.SentinelKey, artifact.WaitOptions{
		Interval: b.config.PollInterval,
		Timeout:  b.config.Timeout,
		OnPoll: func(attempt int) {
			b.logger.WithField("attempt", attempt).Trace("awaiting completion")
		},
	})
	if errors.Is(err, artifact.ErrTimeout) {
		return 0, fmt.Errorf("%w after %s", ErrTimeout, b.config.Timeout)
	}
	if err != nil {
		return 0, err
	}
	return ParseCode(data)
}

// Reset removes a sentinel left over from an earlier session.
func (b *Barrier) Reset(ctx context.Context) error {
	return b.store.Delete(ctx, model.SentinelKey)
}

// ParseCode parses a sentinel value. An empty sentinel means success.
func ParseCode(data []byte) (int, error) {
	value := strings.TrimSpace(string(data))
	if value == "" {
		return 0, nil
	}
	code, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid sentinel %q: %w", value, err)
	}
	return code, nil
}
