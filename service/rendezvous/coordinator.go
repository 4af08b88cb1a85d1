// Package rendezvous lets independently started node-processes agree on one
// compute leader and its address through the artifact store.
package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/smcluster/internal/logging"
	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/artifact"
)

var (
	// ErrLeaderStartup is returned when the leader daemon fails to start. It
	// aborts the session and is never retried.
	ErrLeaderStartup = errors.New("rendezvous: leader startup failed")

	// ErrTimeout is returned when no live leader address is observed in time.
	ErrTimeout = errors.New("rendezvous: timed out waiting for leader address")

	// ErrAborted is returned when the session is aborted while awaiting election.
	ErrAborted = errors.New("rendezvous: session aborted")
)

// State is a rendezvous state; Discovered and Elected are terminal.
type State int

const (
	ProbeExisting State = iota
	ValidateLiveness
	Clear
	Elect
	AwaitElection
	Discovered
	Elected
)

var stateNames = [...]string{"probe-existing", "validate-liveness", "clear", "elect", "await-election", "discovered", "elected"}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// LeaderStarter starts the compute leader on the local machine.
type LeaderStarter interface {
	// StartLeader starts the leader daemon and returns the address it binds.
	StartLeader(ctx context.Context) (model.AddressRecord, error)
	StopLeader(ctx context.Context) error
}

// Prober checks whether a leader process runs at a recorded address.
type Prober interface {
	Alive(ctx context.Context, record model.AddressRecord) (bool, error)
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc func(ctx context.Context, record model.AddressRecord) (bool, error)

func (f ProbeFunc) Alive(ctx context.Context, record model.AddressRecord) (bool, error) {
	return f(ctx, record)
}

// Config controls polling for the leader address.
type Config struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	// Timeout bounds AwaitElection; zero waits until ctx is done.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default polling settings.
func DefaultConfig() Config {
	return Config{PollInterval: 500 * time.Millisecond, Timeout: 10 * time.Minute}
}

// Coordinator runs the rendezvous state machine of one node-process.
type Coordinator struct {
	store   artifact.Store
	prober  Prober
	starter LeaderStarter
	config  Config
	logger  *logrus.Entry
	// OnTransition, when set, observes every state change.
	OnTransition func(State)
	// AbortKey, when set, names an artifact whose appearance ends AwaitElection.
	AbortKey string
}

// New creates a Coordinator. starter may be nil for non-eligible ranks.
func New(store artifact.Store, prober Prober, starter LeaderStarter, config Config, logger *logrus.Entry) *Coordinator {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coordinator{store: store, prober: prober, starter: starter, config: config, logger: logger}
}

// ElectOrDiscover returns the address of a live compute leader. The eligible
// node-process is the only one that clears a stale record or writes a new one.
func (c *Coordinator) ElectOrDiscover(ctx context.Context, eligible bool) (model.AddressRecord, State, error) {
	c.transition(ProbeExisting)
	record, found, err := c.read(ctx)
	if err != nil {
		return model.AddressRecord{}, ProbeExisting, err
	}
	if found {
		c.transition(ValidateLiveness)
		if c.alive(ctx, record) {
			c.transition(Discovered)
			return record, Discovered, nil
		}
	}
	if !eligible {
		return c.await(ctx, record, found)
	}
	if found {
		c.transition(Clear)
		c.logger.WithField("address", record.String()).Warn("stale leader detected, clearing address record")
		if err := c.store.Delete(ctx, model.AddressKey); err != nil {
			return model.AddressRecord{}, Clear, fmt.Errorf("failed to clear stale address record: %w", err)
		}
	}
	return c.elect(ctx)
}

func (c *Coordinator) elect(ctx context.Context) (model.AddressRecord, State, error) {
	c.transition(Elect)
	if c.starter == nil {
		return model.AddressRecord{}, Elect, fmt.Errorf("%w: no leader starter", ErrLeaderStartup)
	}
	record, err := c.starter.StartLeader(ctx)
	if err != nil {
		return model.AddressRecord{}, Elect, fmt.Errorf("%w: %v", ErrLeaderStartup, err)
	}
	err = c.store.PutIfAbsent(ctx, model.AddressKey, []byte(record.String()+"\n"))
	if errors.Is(err, artifact.ErrExists) {
		existing, found, rErr := c.read(ctx)
		if rErr != nil || !found {
			return model.AddressRecord{}, Elect, fmt.Errorf("address record vanished after conflicting write: %v", rErr)
		}
		c.logger.WithField("address", existing.String()).Warn("address record already written, stopping local leader")
		if sErr := c.starter.StopLeader(ctx); sErr != nil {
			c.logger.WithError(sErr).Warn("failed to stop local leader")
		}
		c.transition(Discovered)
		return existing, Discovered, nil
	}
	if err != nil {
		return model.AddressRecord{}, Elect, fmt.Errorf("failed to write address record: %w", err)
	}
	c.logger.WithField("address", record.String()).Info("elected compute leader")
	c.transition(Elected)
	return record, Elected, nil
}

// await polls for the address record. A record published after waiting began
// is accepted as is; the record already present when waiting began is
// accepted unless the prober reports its leader as definitely not running.
func (c *Coordinator) await(ctx context.Context, stale model.AddressRecord, staleFound bool) (model.AddressRecord, State, error) {
	c.transition(AwaitElection)
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()
	for {
		record, found, err := c.read(ctx)
		if err != nil && ctx.Err() == nil {
			return model.AddressRecord{}, AwaitElection, err
		}
		if !found {
			staleFound = false
		}
		if found && !record.IsZero() && (!staleFound || record != stale || !c.dead(ctx, record)) {
			c.transition(Discovered)
			c.logger.WithField("address", record.String()).Info("discovered compute leader")
			return record, Discovered, nil
		}
		if c.AbortKey != "" {
			if aborted, _ := c.store.Exists(ctx, c.AbortKey); aborted {
				return model.AddressRecord{}, AwaitElection, ErrAborted
			}
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && c.config.Timeout > 0 {
				return model.AddressRecord{}, AwaitElection, fmt.Errorf("%w after %s", ErrTimeout, c.config.Timeout)
			}
			return model.AddressRecord{}, AwaitElection, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) read(ctx context.Context) (model.AddressRecord, bool, error) {
	data, err := c.store.Get(ctx, model.AddressKey)
	if errors.Is(err, artifact.ErrNotFound) {
		return model.AddressRecord{}, false, nil
	}
	if err != nil {
		return model.AddressRecord{}, false, fmt.Errorf("failed to read address record: %w", err)
	}
	record, err := model.ParseAddress(string(data))
	if err != nil {
		c.logger.WithError(err).Warn("ignoring malformed address record")
		return model.AddressRecord{}, true, nil
	}
	return record, true, nil
}

func (c *Coordinator) alive(ctx context.Context, record model.AddressRecord) bool {
	if record.IsZero() || c.prober == nil {
		return !record.IsZero()
	}
	alive, err := c.prober.Alive(ctx, record)
	if err != nil {
		c.logger.WithError(err).WithField("address", record.String()).Warn("leader probe failed")
		return false
	}
	return alive
}

// dead reports whether the prober positively found no leader process; probe
// errors leave liveness unknown.
func (c *Coordinator) dead(ctx context.Context, record model.AddressRecord) bool {
	if c.prober == nil {
		return false
	}
	alive, err := c.prober.Alive(ctx, record)
	if err != nil {
		c.logger.WithError(err).WithField("address", record.String()).Warn("leader liveness unknown, accepting address record")
		return false
	}
	return !alive
}

func (c *Coordinator) transition(state State) {
	c.logger.WithField("state", state.String()).Debug("rendezvous")
	if c.OnTransition != nil {
		c.OnTransition(state)
	}
}
