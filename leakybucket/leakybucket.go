// Package leakybucket implements the Leaky Bucket rate limiting algorithm
// (spec §4.4) as a meter: each admitted request adds its cost to the
// bucket's water level, the level leaks out continuously at
// RateSpec.PerSecond() units/second, and a request is admitted iff its
// cost fits under the bucket's capacity after leaking.
package leakybucket

import (
	"context"
	"fmt"
	"time"

	"github.com/ratevalve/ratevalve"
	"github.com/ratevalve/ratevalve/internal/clock"
	"github.com/ratevalve/ratevalve/internal/keystore"
)

// DefaultCapacity is the bucket capacity used when Options.Capacity is
// left at zero, matching tokenbucket's documented default.
const DefaultCapacity = 6

// Options configures a Store.
type Options struct {
	// Capacity is the maximum water level the bucket can hold before it
	// overflows and rejects. Default DefaultCapacity.
	Capacity float64

	// IdleTTL is how long an identifier can sit unused before its bucket
	// is evicted, whatever its level. Default is twice the RateSpec's period.
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

// state is the per-identifier bucket level (spec §3's leaky bucket row).
type state struct {
	level    float64
	lastLeak time.Time
}

// Store is a local, in-process Leaky Bucket meter. It implements
// ratevalve.Store.
type Store struct {
	spec     ratevalve.RateSpec
	capacity float64
	leak     float64 // units drained per second
	clk      clock.Clock
	keys     *keystore.Store[state]
}

// New creates a Leaky Bucket store for spec, applying opts.
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
		leak:     spec.PerSecond(),
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

// Consume performs the leak-then-pour protocol from spec §4.4 under a
// single lock acquisition: the level leaks down to reflect elapsed time,
// then cost units are added if they fit under capacity.
func (s *Store) Consume(_ context.Context, key string, cost int64) (ratevalve.Decision, error) {
	now := s.clk.Now()
	c := float64(cost)

	st, allowed := s.keys.Update(key, func(cur state, exists bool) (state, bool) {
		if !exists {
			cur = state{level: 0, lastLeak: now}
		}

		// A clock regression is treated as zero elapsed time rather than
		// corrupting the level with a negative leak.
		if now.After(cur.lastLeak) {
			elapsed := now.Sub(cur.lastLeak).Seconds()
			cur.level = max(0, cur.level-s.leak*elapsed)
		}
		cur.lastLeak = now

		if cur.level+c > s.capacity {
			return cur, false
		}
		cur.level += c
		return cur, true
	})

	headroom := s.capacity - st.level
	remaining := headroom
	if c > 0 {
		remaining = headroom / c
	}
	return ratevalve.Decision{Allowed: allowed, Remaining: remaining}, nil
}

// Close stops the eviction sweep.
func (s *Store) Close() error {
	return s.keys.Close()
}
