// Package gin adapts a ratevalve.Store into a Gin middleware handler.
package gin

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ratevalve/ratevalve"
)

// KeyFunc derives the rate-limit identifier from a Gin context. The
// default, used when Config.KeyFunc is nil, keys by client IP.
type KeyFunc func(c *gin.Context) (string, error)

// Config configures RateLimit.
type Config struct {
	// KeyFunc derives the identifier. Default keys by c.ClientIP().
	KeyFunc KeyFunc

	// Cost is the request cost charged per call. Default 1.
	Cost int64

	// FailurePolicy governs behavior when the store is unavailable.
	// Default ratevalve.FailOpen.
	FailurePolicy ratevalve.FailurePolicy
}

func (cfg *Config) setDefaults() {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) (string, error) { return c.ClientIP(), nil }
	}
	if cfg.Cost <= 0 {
		cfg.Cost = 1
	}
}

// RateLimit builds a gin.HandlerFunc that enforces spec against store,
// following the same derive→consume→header→allow-or-429 flow as
// ratevalve.Wrap, adapted to Gin's context/abort idiom instead of
// net/http.Handler chaining.
func RateLimit(spec ratevalve.RateSpec, store ratevalve.Store, cfg Config) gin.HandlerFunc {
	cfg.setDefaults()

	return func(c *gin.Context) {
		key, err := cfg.KeyFunc(c)
		if err != nil || key == "" {
			c.AbortWithStatusJSON(400, gin.H{"error": "missing rate limit identifier"})
			return
		}

		decision, err := store.Consume(c.Request.Context(), key, cfg.Cost)
		if err != nil {
			if errors.Is(err, ratevalve.ErrStoreUnavailable) {
				handleUnavailable(c, spec, store, cfg.FailurePolicy)
				return
			}
			c.AbortWithStatusJSON(500, gin.H{"error": "rate limiter error"})
			return
		}

		for name, value := range ratevalve.Headers(store, spec, decision) {
			c.Header(name, value)
		}
		if !decision.Allowed {
			c.AbortWithStatusJSON(429, gin.H{"error": fmt.Sprintf("Rate Limit for %s exceeded.", key)})
			return
		}

		c.Next()
	}
}

func handleUnavailable(c *gin.Context, spec ratevalve.RateSpec, store ratevalve.Store, policy ratevalve.FailurePolicy) {
	c.Header(ratevalve.HeaderLimit, strconv.FormatFloat(ratevalve.LimitValue(store, spec), 'f', -1, 64))

	if policy == ratevalve.FailClosed {
		c.Header(ratevalve.HeaderRemaining, "0")
		c.AbortWithStatusJSON(429, gin.H{"error": "Rate limiter unavailable."})
		return
	}
	c.Header(ratevalve.HeaderRemaining, "unknown")
	c.Next()
}
