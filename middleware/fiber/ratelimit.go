// Package fiber adapts a ratevalve.Store into a Fiber middleware handler.
package fiber

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ratevalve/ratevalve"
)

// KeyFunc derives the rate-limit identifier from a Fiber context. The
// default, used when Config.KeyFunc is nil, keys by client IP.
type KeyFunc func(c *fiber.Ctx) (string, error)

// Config configures RateLimit.
type Config struct {
	// KeyFunc derives the identifier. Default keys by c.IP().
	KeyFunc KeyFunc

	// Cost is the request cost charged per call. Default 1.
	Cost int64

	// FailurePolicy governs behavior when the store is unavailable.
	// Default ratevalve.FailOpen.
	FailurePolicy ratevalve.FailurePolicy
}

func (cfg *Config) setDefaults() {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *fiber.Ctx) (string, error) { return c.IP(), nil }
	}
	if cfg.Cost <= 0 {
		cfg.Cost = 1
	}
}

// RateLimit builds a fiber.Handler that enforces spec against store,
// following the same derive→consume→header→allow-or-429 flow as
// ratevalve.Wrap, adapted to Fiber's error-returning handler idiom.
func RateLimit(spec ratevalve.RateSpec, store ratevalve.Store, cfg Config) fiber.Handler {
	cfg.setDefaults()

	return func(c *fiber.Ctx) error {
		key, err := cfg.KeyFunc(c)
		if err != nil || key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing rate limit identifier"})
		}

		decision, err := store.Consume(c.UserContext(), key, cfg.Cost)
		if err != nil {
			if errors.Is(err, ratevalve.ErrStoreUnavailable) {
				return handleUnavailable(c, spec, store, cfg.FailurePolicy)
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "rate limiter error"})
		}

		for name, value := range ratevalve.Headers(store, spec, decision) {
			c.Set(name, value)
		}
		if !decision.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fmt.Sprintf("Rate Limit for %s exceeded.", key),
			})
		}

		return c.Next()
	}
}

func handleUnavailable(c *fiber.Ctx, spec ratevalve.RateSpec, store ratevalve.Store, policy ratevalve.FailurePolicy) error {
	c.Set(ratevalve.HeaderLimit, strconv.FormatFloat(ratevalve.LimitValue(store, spec), 'f', -1, 64))

	if policy == ratevalve.FailClosed {
		c.Set(ratevalve.HeaderRemaining, "0")
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Rate limiter unavailable."})
	}
	c.Set(ratevalve.HeaderRemaining, "unknown")
	return c.Next()
}
