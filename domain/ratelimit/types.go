// Package ratelimit provides domain types and interfaces for request rate limiting.
package ratelimit

import (
	"context"
	"time"
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerWindow is the maximum number of requests allowed in the window.
	RequestsPerWindow int
	// WindowSize is the duration of the sliding window.
	WindowSize time.Duration
	// KeyPrefix is prepended to every Redis key.
	KeyPrefix string
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// RetryAfter is only set when the request is not allowed.
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// DefaultConfig returns 100 requests per minute per client.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 100,
		WindowSize:        time.Minute,
		KeyPrefix:         "todo-app:ratelimit:",
	}
}
