package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WaitOptions controls polling for an artifact.
type WaitOptions struct {
	// Interval between two probes; defaults to 500ms.
	Interval time.Duration
	// Timeout bounds the whole wait; zero waits until ctx is done.
	Timeout time.Duration
	// OnPoll, when set, is called after every unsuccessful probe.
	OnPoll func(attempt int)
}

func (o *WaitOptions) init() {
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
}

// Wait polls store until key exists and returns its value. It fails with
// ErrTimeout once Timeout elapses and with the context error when ctx is done.
func Wait(ctx context.Context, store Store, key string, options WaitOptions) ([]byte, error) {
	options.init()
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}
	ticker := time.NewTicker(options.Interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		data, err := store.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if options.OnPoll != nil {
			options.OnPoll(attempt)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && options.Timeout > 0 {
				return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, key, options.Timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
