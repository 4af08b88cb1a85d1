package artifact_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/smcluster/service/artifact"
	"github.com/viant/smcluster/service/artifact/memory"
)

func TestWait(t *testing.T) {
	ctx := context.Background()

	t.Run("already present", func(t *testing.T) {
		store := memory.New()
		require.NoError(t, store.PutIfAbsent(ctx, "done", []byte("0\n")))
		data, err := artifact.Wait(ctx, store, "done", artifact.WaitOptions{Interval: time.Millisecond})
		require.NoError(t, err)
		assert.Equal(t, "0\n", string(data))
	})

	t.Run("appears later", func(t *testing.T) {
		store := memory.New()
		polled := make(chan struct{}, 1)
		go func() {
			<-polled
			_ = store.PutIfAbsent(ctx, "done", []byte("3\n"))
		}()
		data, err := artifact.Wait(ctx, store, "done", artifact.WaitOptions{
			Interval: 5 * time.Millisecond,
			Timeout:  5 * time.Second,
			OnPoll: func(int) {
				select {
				case polled <- struct{}{}:
				default:
				}
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "3\n", string(data))
	})

	t.Run("timeout", func(t *testing.T) {
		store := memory.New()
		_, err := artifact.Wait(ctx, store, "done", artifact.WaitOptions{Interval: time.Millisecond, Timeout: 20 * time.Millisecond})
		assert.ErrorIs(t, err, artifact.ErrTimeout)
	})

	t.Run("cancelled", func(t *testing.T) {
		store := memory.New()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := artifact.Wait(cctx, store, "done", artifact.WaitOptions{Interval: time.Millisecond})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
