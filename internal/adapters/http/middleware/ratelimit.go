package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/amida-tech/amida-auth-microservice/config"
	"github.com/amida-tech/amida-auth-microservice/pkg/httpx"
)

// NewRateLimit returns a Redis-backed fixed-window limiter keyed by route and
// client IP, meant for credential-sensitive endpoints. With no Redis client
// configured it is a no-op, and Redis errors fail open: an unavailable
// limiter must not take logins down with it.
func NewRateLimit(cfg *config.Config, rdb *redis.Client) echo.MiddlewareFunc {
	if rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("ratelimit:%s:%s", c.Path(), c.RealIP())
			ctx := c.Request().Context()

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if count == 1 {
				rdb.Expire(ctx, key, cfg.RateLimitWindow)
			}
			if count > int64(cfg.RateLimitMax) {
				retry, _ := rdb.TTL(ctx, key).Result()
				if retry > 0 {
					c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
				}
				return httpx.Error(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Rate limit exceeded")
			}
			return next(c)
		}
	}
}
