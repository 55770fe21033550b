package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/example/todo-app/domain/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedis returns a client for localhost Redis or skips the test.
func setupRedis(t *testing.T, keys ...string) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping integration test")
	}

	t.Cleanup(func() {
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		_ = client.Close()
	})
	return client
}

func TestSlidingWindowLimiter_Allow(t *testing.T) {
	prefix := "test:todo:ratelimit:"
	client := setupRedis(t, prefix+"k", prefix+"k:counter")

	limiter := NewSlidingWindowLimiter(client, ratelimit.Config{
		RequestsPerWindow: 5,
		WindowSize:        time.Minute,
		KeyPrefix:         prefix,
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d", i+1)
		assert.Equal(t, 5-i-1, result.Remaining)
	}

	result, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
	assert.Positive(t, result.RetryAfter)
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	prefix := "test:todo:ratelimit:slide:"
	client := setupRedis(t, prefix+"k", prefix+"k:counter")

	limiter := NewSlidingWindowLimiter(client, ratelimit.Config{
		RequestsPerWindow: 2,
		WindowSize:        time.Second,
		KeyPrefix:         prefix,
	})

	now := time.Now()
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		result, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}
	result, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, result.Allowed)

	now = now.Add(1100 * time.Millisecond)
	result, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
