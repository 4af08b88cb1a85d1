package barrier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/smcluster/internal/logging"
	"github.com/viant/smcluster/model"
	afsstore "github.com/viant/smcluster/service/artifact/fs"
	"github.com/viant/smcluster/service/artifact/memory"
)

var fast = Config{PollInterval: 5 * time.Millisecond}

func TestBarrier_RoundTrip(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, New(store, fast, logging.Discard()).Signal(ctx, 17))

	code, err := New(store, fast, logging.Discard()).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 17, code)
}

func TestBarrier_SecondSignalRejected(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	barrier := New(store, fast, logging.Discard())
	require.NoError(t, barrier.Signal(ctx, 17))

	err := barrier.Signal(ctx, 4)
	assert.ErrorIs(t, err, ErrAlreadySignaled)
	code, err := barrier.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 17, code, "original code must be preserved")
	assert.Equal(t, 1, store.Writes(model.SentinelKey))
}

func TestBarrier_AwaitBlocksUntilSignal(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	const nodes = 3
	codes := make([]int, nodes)
	var wg sync.WaitGroup
	for i := 0; i < nodes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := New(store, fast, logging.Discard()).Await(ctx)
			assert.NoError(t, err)
			codes[i] = code
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, New(store, fast, logging.Discard()).Signal(ctx, 3))
	wg.Wait()
	assert.Equal(t, []int{3, 3, 3}, codes)
}

func TestBarrier_AwaitTimeout(t *testing.T) {
	barrier := New(memory.New(), Config{PollInterval: 5 * time.Millisecond, Timeout: 20 * time.Millisecond}, logging.Discard())
	_, err := barrier.Await(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestBarrier_Reset(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	barrier := New(store, fast, logging.Discard())
	require.NoError(t, barrier.Signal(ctx, 1))
	require.NoError(t, barrier.Reset(ctx))
	require.NoError(t, barrier.Signal(ctx, 0))
	code, err := barrier.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestParseCode(t *testing.T) {
	testCases := []struct {
		input     string
		expect    int
		expectErr bool
	}{
		{input: "17\n", expect: 17},
		{input: "", expect: 0},
		{input: " 3 ", expect: 3},
		{input: "x", expectErr: true},
	}
	for _, tc := range testCases {
		actual, err := ParseCode([]byte(tc.input))
		if tc.expectErr {
			assert.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expect, actual, tc.input)
	}
}

func TestBarrier_SharedDirectory(t *testing.T) {
	ctx := context.Background()
	store, err := afsstore.New(ctx, t.TempDir())
	require.NoError(t, err)
	barrier := New(store, fast, logging.Discard())
	require.NoError(t, barrier.Signal(ctx, 17))
	assert.ErrorIs(t, barrier.Signal(ctx, 0), ErrAlreadySignaled)

	code, err := New(store, fast, logging.Discard()).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 17, code)

	require.NoError(t, barrier.Reset(ctx))
	require.NoError(t, barrier.Signal(ctx, 0))
	code, err = barrier.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}
