package security

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// RateLimiter counts requests per identifier in fixed Redis windows.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{redis: redisClient, limit: int64(limit), window: window}
}

// limitKey hashes identifier so client addresses are not stored in Redis.
func limitKey(identifier string) string {
	sum := blake2b.Sum256([]byte(identifier))
	return "ratelimit:" + hex.EncodeToString(sum[:16])
}

// Allow records one hit for identifier and reports whether it is within the limit.
func (r *RateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := limitKey(identifier)

	// EXPIRE NX on every hit so a window whose first EXPIRE failed still
	// gets a TTL on the next request.
	var count *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return count.Val() <= r.limit, nil
}

// redisStore adapts RateLimiter to echo's RateLimiterStore.
type redisStore struct {
	limiter *RateLimiter
}

func (s *redisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.limiter.Allow(ctx, identifier)
}

// Rate limiting middleware for the metrics server
func (r *RateLimiter) EchoRateLimit() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: &redisStore{limiter: r},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return "metrics:" + c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "Unable to identify client.",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// Anti-bot protection
func (r *RateLimiter) AntiBotMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Check for bot patterns
			userAgent := c.Request().Header.Get("User-Agent")
			if IsSuspiciousUserAgent(userAgent) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "Access denied",
				})
			}
			return next(c)
		}
	}
}

// IsSuspiciousUserAgent flags common crawler user agents. Prometheus
// scrapers identify themselves as "Prometheus/x.y" and pass.
func IsSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	ua = strings.ToLower(ua)
	for _, pattern := range suspicious {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
