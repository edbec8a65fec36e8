// Package slidingcounter implements the Sliding Window Counter algorithm
// (spec §4.7): a cheaper approximation of the sliding log that tracks two
// adjacent RateSpec.D-aligned major windows per identifier and estimates
// the trailing D interval's total as a linear blend of the two, weighted
// by how far the current major window has elapsed. Requests are counted
// into two running totals, one per major window; no per-second
// sub-window buckets are kept, so the previous window's whole total is
// weighted by (1-f), and its requests are not pruned by age individually.
package slidingcounter

import (
	"context"
	"time"

	"github.com/ratevalve/ratevalve"
	"github.com/ratevalve/ratevalve/internal/clock"
	"github.com/ratevalve/ratevalve/internal/keystore"
)

// Options configures a Store.
type Options struct {
	// IdleTTL is how long an identifier can sit unused before its counters
	// are evicted. Default is twice the RateSpec's period.
	IdleTTL time.Duration

	// Clock is the time source. Default clock.New() (wall/monotonic).
	Clock clock.Clock
}

// Validate fills in defaults for any zero-valued field, mirroring strigo's
// Options.Validate()/Config.Validate() idiom.
func (o *Options) Validate(spec ratevalve.RateSpec) error {
	if o.IdleTTL <= 0 {
		o.IdleTTL = 2 * spec.D
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return nil
}

// state is the per-identifier pair of adjacent major-window counters (spec
// §3's sliding counter row, collapsed from per-sub-window counts to their
// window sums).
type state struct {
	currStart time.Time
	curr      int64
	prev      int64
}

// Store is a local, in-process Sliding Window Counter. It implements
// ratevalve.Store.
type Store struct {
	spec ratevalve.RateSpec
	clk  clock.Clock
	keys *keystore.Store[state]
}

// New creates a Sliding Window Counter store for spec, applying opts. The
// weighting formula is derived from RateSpec.D directly (never hardcoded
// to a one-minute period, per spec §4.7's note on the source's bug), so
// any period works.
func New(spec ratevalve.RateSpec, opts ...func(*Options)) (*Store, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(spec); err != nil {
		return nil, err
	}

	return &Store{
		spec: spec,
		clk:  o.Clock,
		keys: keystore.New[state](o.IdleTTL, o.Clock),
	}, nil
}

// WithIdleTTL overrides the eviction TTL.
func WithIdleTTL(ttl time.Duration) func(*Options) {
	return func(o *Options) { o.IdleTTL = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(c clock.Clock) func(*Options) {
	return func(o *Options) { o.Clock = c }
}

// majorWindowStart floors t to the start of its RateSpec.D-aligned major
// window, mirroring fixedwindow's epoch alignment.
func majorWindowStart(t time.Time, d time.Duration) time.Time {
	return t.Truncate(d)
}

// Consume estimates the trailing-window count as prev*(1-f) + curr, where
// f is the fraction of the current major window elapsed, and admits iff
// that estimate plus cost does not exceed R (spec §4.7). Crossing exactly one
// major window boundary rolls curr into prev; crossing more than one
// leaves both windows empty, since neither overlaps the trailing D
// interval anymore.
func (s *Store) Consume(_ context.Context, key string, cost int64) (ratevalve.Decision, error) {
	now := s.clk.Now()
	curStart := majorWindowStart(now, s.spec.D)

	st, allowed := s.keys.Update(key, func(cur state, exists bool) (state, bool) {
		if !exists {
			cur = state{currStart: curStart}
		} else if cur.currStart.Before(curStart) {
			if curStart.Sub(cur.currStart) == s.spec.D {
				cur.prev = cur.curr
			} else {
				cur.prev = 0
			}
			cur.curr = 0
			cur.currStart = curStart
		}

		estimate := weighted(cur, now, s.spec.D)
		if estimate+float64(cost) > float64(s.spec.R) {
			return cur, false
		}
		cur.curr += cost
		return cur, true
	})

	remaining := float64(s.spec.R) - weighted(st, now, s.spec.D)
	return ratevalve.Decision{Allowed: allowed, Remaining: max(0, remaining)}, nil
}

// weighted computes prev*(1-f) + curr for st at time now.
func weighted(st state, now time.Time, d time.Duration) float64 {
	f := float64(now.Sub(st.currStart)) / float64(d)
	return float64(st.prev)*(1-f) + float64(st.curr)
}

// LimitHeaderValue reports the raw request budget R, the natural unit for
// a window counter.
func (s *Store) LimitHeaderValue(spec ratevalve.RateSpec) float64 {
	return float64(spec.R)
}

// Close stops the eviction sweep.
func (s *Store) Close() error {
	return s.keys.Close()
}
