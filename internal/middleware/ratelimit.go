// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/contactdesk/internal/auth"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimitStore counts requests per key within a fixed window.
type RateLimitStore interface {
	// Increment bumps the counter for key and returns the new count.
	// The counter expires after window once created.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisStore implements RateLimitStore on a Redis counter.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a rate limit store backed by the Redis
// instance at addr.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Increment implements RateLimitStore.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("setting rate limit window: %w", err)
		}
	}
	return count, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// RateLimit creates middleware that allows at most limit requests per
// window for each caller. Authenticated callers are tracked per
// account, anonymous callers per client IP. A nil store disables the
// limiter.
func RateLimit(store RateLimitStore, limit int64, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if store == nil || limit <= 0 {
				return next(c)
			}

			key := "ratelimit:" + c.Path() + ":" + callerKey(c)
			count, err := store.Increment(c.Request().Context(), key, window)
			if err != nil {
				// The limiter must not take the API down with it.
				slog.Error("rate limiter unavailable", "error", err)
				return next(c)
			}

			if count > limit {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func callerKey(c echo.Context) string {
	if user := auth.GetUser(c.Request().Context()); user != nil {
		return fmt.Sprintf("user:%d", user.ID)
	}
	return "ip:" + c.RealIP()
}
