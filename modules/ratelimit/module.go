package ratelimit

import (
	"context"
	"fmt"

	"github.com/example/todo-app/config"
	"github.com/example/todo-app/domain/ratelimit"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// Module owns the Redis client behind the limiter.
type Module struct {
	cfg        config.RateLimitConfig
	client     *redis.Client
	middleware *Middleware
	logger     types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a rate limiting module.
func NewModule(cfg config.RateLimitConfig, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rate-limiter"
}

// Start connects to Redis and builds the middleware. Redis must be reachable.
func (m *Module) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr:     m.cfg.RedisAddr,
		Password: m.cfg.RedisPassword,
	})

	if err := m.client.Ping(ctx).Err(); err != nil {
		_ = m.client.Close()
		m.client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.RequestsPerWindow = m.cfg.Requests
	limiterConfig.WindowSize = m.cfg.Window

	limiter := NewSlidingWindowLimiter(m.client, limiterConfig)
	m.middleware = NewMiddleware(limiter, limiterConfig.RequestsPerWindow, m.logger)

	m.logger.Info("Rate limiter connected to Redis",
		"addr", m.cfg.RedisAddr,
		"requests", limiterConfig.RequestsPerWindow,
		"window", limiterConfig.WindowSize.String())
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client == nil {
		return nil
	}
	if err := m.client.Close(); err != nil {
		m.logger.Error("Error closing Redis connection", "error", err)
	}
	m.logger.Info("Rate limiter stopped")
	return nil
}

// Health pings Redis.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "Redis client not initialized",
		}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("Redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr": m.cfg.RedisAddr,
		},
	}
}

// Middleware returns the fiber middleware. It is nil until Start succeeds.
func (m *Module) Middleware() *Middleware {
	return m.middleware
}
