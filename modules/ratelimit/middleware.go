package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/example/todo-app/domain/ratelimit"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Middleware applies a per-IP limit to fiber routes.
type Middleware struct {
	limiter ratelimit.Limiter
	limit   int
	logger  types.Logger
}

// NewMiddleware wraps limiter. limit is reported in X-RateLimit-Limit.
func NewMiddleware(limiter ratelimit.Limiter, limit int, logger types.Logger) *Middleware {
	return &Middleware{
		limiter: limiter,
		limit:   limit,
		logger:  logger,
	}
}

// IPRateLimit returns a handler that limits requests by client IP.
// Limiter errors let the request through.
func (m *Middleware) IPRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()

		result, err := m.limiter.Allow(c.UserContext(), "ip:"+ip)
		if err != nil {
			m.logger.Warn("Rate limit check failed, allowing request", "ip", ip, "error", err)
			return c.Next()
		}

		setRateLimitHeaders(c, result, m.limit)

		if !result.Allowed {
			return sendRateLimitExceeded(c, result)
		}
		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, result *ratelimit.Result, limit int) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func sendRateLimitExceeded(c *fiber.Ctx, result *ratelimit.Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fmt.Sprintf("Too many requests, retry after %d seconds", retryAfter),
	})
}
