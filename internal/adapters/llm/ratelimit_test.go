package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimited_PassesThrough(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	rl := NewRateLimited(fc, 60, 2)

	for i := 0; i < 2; i++ {
		out, err := rl.Complete(context.Background(), Prompt{User: "x"})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	}
	assert.Len(t, fc.got, 2)
	assert.Equal(t, "fake", rl.Provider())
	assert.Equal(t, "fake-1", rl.Model())
}

func TestRateLimited_WaitHonoursContext(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	rl := NewRateLimited(fc, 1, 1)

	_, err := rl.Complete(context.Background(), Prompt{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = rl.Complete(ctx, Prompt{})
	require.Error(t, err)
	assert.Len(t, fc.got, 1)
}
