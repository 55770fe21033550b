// Package ratelimit limits API requests per client IP with a Redis sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/example/todo-app/domain/ratelimit"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims entries older than the window, counts what is
// left and records the request when under the limit. KEYS[1] is the sorted
// set of request timestamps, KEYS[2] a counter that keeps members unique.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_size_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < limit then
		local counter = redis.call('INCR', counter_key)
		redis.call('ZADD', key, now, now .. ':' .. counter)
		redis.call('PEXPIRE', key, window_size_ms)
		redis.call('PEXPIRE', counter_key, window_size_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = 0
	if #oldest >= 2 then
		retry_after = oldest[2] + window_size_ms - now
	end
	return {0, 0, retry_after}
`)

// SlidingWindowLimiter implements ratelimit.Limiter on a Redis sorted set.
type SlidingWindowLimiter struct {
	client redis.Scripter
	config ratelimit.Config
	now    func() time.Time
}

var _ ratelimit.Limiter = (*SlidingWindowLimiter)(nil)

// NewSlidingWindowLimiter creates a sliding window limiter.
func NewSlidingWindowLimiter(client redis.Scripter, config ratelimit.Config) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		config: config,
		now:    time.Now,
	}
}

// Allow records the request for key and reports whether it fits in the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*ratelimit.Result, error) {
	now := l.now()
	windowStart := now.Add(-l.config.WindowSize)
	redisKey := l.config.KeyPrefix + key
	counterKey := redisKey + ":counter"

	result, err := slidingWindowScript.Run(ctx, l.client, []string{redisKey, counterKey},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		l.config.RequestsPerWindow,
		l.config.WindowSize.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(result) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result length: %d", len(result))
	}

	res := &ratelimit.Result{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   now.Add(l.config.WindowSize),
	}
	if !res.Allowed && result[2] > 0 {
		res.RetryAfter = time.Duration(result[2]) * time.Millisecond
	}
	return res, nil
}

// Config returns the limiter's configuration.
func (l *SlidingWindowLimiter) Config() ratelimit.Config {
	return l.config
}
