package shell

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	testCases := []struct {
		input  string
		expect string
	}{
		{input: "pgrep -f x", expect: "'pgrep -f x'"},
		{input: "echo 'a'", expect: `'echo '\''a'\'''`},
		{input: "", expect: "''"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expect, Quote(tc.input), tc.input)
	}
}

func TestRemoteCommand(t *testing.T) {
	actual := RemoteCommand("node7", "pgrep -f Master")
	assert.Equal(t, "ssh -o BatchMode=yes -o StrictHostKeyChecking=no node7 'pgrep -f Master'", actual)
}

func TestIsLocal(t *testing.T) {
	assert.True(t, IsLocal(Localhost))
	assert.True(t, IsLocal("127.0.0.1"))
	assert.False(t, IsLocal("node7"))
}

func TestService_ConcurrentRunsOnOneSession(t *testing.T) {
	service := New()
	defer service.Close()
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		const commands = 3
		var wg sync.WaitGroup
		results := make([]*Result, commands)
		errs := make([]error, commands)
		for i := 0; i < commands; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = service.Run(ctx, Localhost, fmt.Sprintf("sleep 0.0%d; echo out-%d", commands-i, i))
			}(i)
		}
		wg.Wait()
		for i := 0; i < commands; i++ {
			require.NoError(t, errs[i], i)
			assert.Equal(t, fmt.Sprintf("out-%d", i), results[i].Stdout, i)
			assert.Equal(t, 0, results[i].Status, i)
		}
	}
}
