// Package fixedwindow implements the Fixed Window Counter algorithm
// (spec §4.5): time is sliced into consecutive windows of RateSpec.D
// aligned to epoch boundaries, each identifier gets a counter per window,
// and a request is admitted iff the counter would stay strictly below R
// after incrementing (count+cost < R).
//
// The window-establishing request (the first one seen in a window, or the
// one that rolls over a stale window) is admitted without incrementing the
// counter, reporting remaining as the full R. The strict-< check alone
// would admit R-1 requests per window; with the free window-establishing
// request a window admits R requests (at cost 1) before the first
// rejection.
package fixedwindow

import (
	"context"
	"time"

	"github.com/ratevalve/ratevalve"
	"github.com/ratevalve/ratevalve/internal/clock"
	"github.com/ratevalve/ratevalve/internal/keystore"
)

// Options configures a Store.
type Options struct {
	// IdleTTL is how long an identifier can sit unused before its counter
	// is evicted. Default is twice the RateSpec's period.
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

// state is the per-identifier window counter (spec §3's fixed window row).
type state struct {
	count       int64
	windowStart time.Time
	remaining   float64
}

// Store is a local, in-process Fixed Window Counter. It implements
// ratevalve.Store.
type Store struct {
	spec ratevalve.RateSpec
	clk  clock.Clock
	keys *keystore.Store[state]
}

// New creates a Fixed Window Counter store for spec, applying opts.
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

// windowStart floors t to the start of its RateSpec.D-aligned epoch window.
func windowStart(t time.Time, d time.Duration) time.Time {
	return t.Truncate(d)
}

// Consume follows spec §4.5's protocol: a fresh or stale window is reset
// and admitted for free (remaining reported as the full R); otherwise the
// request is admitted and the counter incremented iff count+cost is
// strictly less than R.
func (s *Store) Consume(_ context.Context, key string, cost int64) (ratevalve.Decision, error) {
	now := s.clk.Now()
	ws := windowStart(now, s.spec.D)

	st, allowed := s.keys.Update(key, func(cur state, exists bool) (state, bool) {
		if !exists || cur.windowStart.Before(ws) {
			cur = state{count: 0, windowStart: ws, remaining: float64(s.spec.R)}
			return cur, true
		}

		if cur.count+cost < s.spec.R {
			cur.count += cost
			cur.remaining = float64(s.spec.R - cur.count)
			return cur, true
		}
		cur.remaining = 0
		return cur, false
	})

	reset := st.windowStart.Add(s.spec.D)
	return ratevalve.Decision{
		Allowed:   allowed,
		Remaining: st.remaining,
		Reset:     &reset,
	}, nil
}

// LimitHeaderValue reports the raw request budget R, the natural unit for
// a window counter, rather than a per-second rate.
func (s *Store) LimitHeaderValue(spec ratevalve.RateSpec) float64 {
	return float64(spec.R)
}

// Close stops the eviction sweep.
func (s *Store) Close() error {
	return s.keys.Close()
}
