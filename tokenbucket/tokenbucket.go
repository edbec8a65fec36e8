// Package tokenbucket implements the Token Bucket rate limiting algorithm
// (spec §4.3): a per-identifier bucket refills continuously at
// RateSpec.PerSecond() tokens/second up to a capacity, and a request of a
// given cost is admitted iff enough tokens are currently available.
package tokenbucket

import (
	"context"
	"fmt"
	"time"

	"github.com/ratevalve/ratevalve"
	"github.com/ratevalve/ratevalve/internal/clock"
	"github.com/ratevalve/ratevalve/internal/keystore"
)

// DefaultCapacity is the bucket capacity used when Options.Capacity is
// left at zero, matching spec §6's documented default of 6.
const DefaultCapacity = 6

// Options configures a Store.
type Options struct {
	// Capacity is the maximum number of tokens the bucket can hold.
	// Default DefaultCapacity.
	Capacity float64

	// IdleTTL is how long an identifier can sit unused before its bucket
	// is evicted. Default is twice the RateSpec's period, mirroring
	// strigo's practice of doubling the window duration for storage TTLs.
	IdleTTL time.Duration

	// Clock is the time source. Default clock.New() (wall/monotonic).
	Clock clock.Clock
}

// Validate rejects a non-positive capacity and fills in defaults for any
// other zero-valued field, mirroring strigo's Options.Validate()/
// Config.Validate() idiom of checking required fields and defaulting
// optional ones in one pass.
func (o *Options) Validate(spec ratevalve.RateSpec) error {
	if o.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %v", ratevalve.ErrInvalidOptions, o.Capacity)
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = 2 * spec.D
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return nil
}

// state is the per-identifier record (spec §3's token bucket row).
type state struct {
	tokens     float64
	lastRefill time.Time
}

// Store is a local, in-process Token Bucket. It implements ratevalve.Store.
type Store struct {
	spec     ratevalve.RateSpec
	capacity float64
	refill   float64 // tokens per second
	clk      clock.Clock
	keys     *keystore.Store[state]
}

// New creates a Token Bucket store for spec, applying opts.
func New(spec ratevalve.RateSpec, opts ...func(*Options)) (*Store, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	o := Options{Capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(spec); err != nil {
		return nil, err
	}

	return &Store{
		spec:     spec,
		capacity: o.Capacity,
		refill:   spec.PerSecond(),
		clk:      o.Clock,
		keys:     keystore.New[state](o.IdleTTL, o.Clock),
	}, nil
}

// WithCapacity overrides the bucket capacity.
func WithCapacity(c float64) func(*Options) {
	return func(o *Options) { o.Capacity = c }
}

// WithIdleTTL overrides the eviction TTL.
func WithIdleTTL(ttl time.Duration) func(*Options) {
	return func(o *Options) { o.IdleTTL = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(c clock.Clock) func(*Options) {
	return func(o *Options) { o.Clock = c }
}

// Consume performs the refill-then-consume protocol from spec §4.3 under a
// single lock acquisition: refill brings tokens up to date with elapsed
// time, then cost tokens are deducted if available.
func (s *Store) Consume(_ context.Context, key string, cost int64) (ratevalve.Decision, error) {
	now := s.clk.Now()
	c := float64(cost)

	st, allowed := s.keys.Update(key, func(cur state, exists bool) (state, bool) {
		if !exists {
			cur = state{tokens: s.capacity, lastRefill: now}
		}

		// A clock regression is treated as zero elapsed time rather than
		// corrupting the bucket with a negative refill.
		if now.After(cur.lastRefill) {
			elapsed := now.Sub(cur.lastRefill).Seconds()
			cur.tokens = min(s.capacity, cur.tokens+s.refill*elapsed)
		}
		cur.lastRefill = now

		if cur.tokens < c {
			return cur, false
		}
		cur.tokens -= c
		return cur, true
	})

	remaining := st.tokens
	if c > 0 {
		remaining = st.tokens / c
	}
	return ratevalve.Decision{Allowed: allowed, Remaining: remaining}, nil
}

// Close stops the eviction sweep.
func (s *Store) Close() error {
	return s.keys.Close()
}
