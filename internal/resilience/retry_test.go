package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond}
}

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastConfig(), "test", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastConfig(), "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", eris.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastConfig(), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, eris.New("always fails")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, RetryConfig{MaxAttempts: 5, Backoff: 50 * time.Millisecond}, "test", func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, eris.New("fail then cancel")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
