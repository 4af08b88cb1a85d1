package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo(t *testing.T) {
	errTransient := errors.New("transient")
	errPermanent := errors.New("permanent")

	testCases := []struct {
		name        string
		failures    int
		fatal       bool
		maxRetries  int
		expectCalls int
		expectErr   error
	}{
		{name: "first attempt", failures: 0, maxRetries: 3, expectCalls: 1},
		{name: "recovers", failures: 2, maxRetries: 3, expectCalls: 3},
		{name: "exhausted", failures: 10, maxRetries: 2, expectCalls: 3, expectErr: errTransient},
		{name: "fatal stops", failures: 10, fatal: true, maxRetries: 5, expectCalls: 1, expectErr: errPermanent},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), func() error {
				calls++
				if calls > tc.failures {
					return nil
				}
				if tc.fatal {
					return Fatal(errPermanent)
				}
				return errTransient
			}, WithMaxRetries(tc.maxRetries), WithInitialDelay(time.Millisecond), WithMaxDelay(2*time.Millisecond))
			assert.Equal(t, tc.expectCalls, calls)
			if tc.expectErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expectErr)
		})
	}
}

func TestDo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, func() error { return errors.New("boom") }, WithInitialDelay(time.Second))
	assert.ErrorIs(t, err, context.Canceled)
}
