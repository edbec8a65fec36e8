// Package slidinglog implements the Sliding Window Log algorithm (spec
// §4.6): each identifier keeps a timestamped log of its admitted and
// attempted requests. On every call the current timestamp is appended
// unconditionally, entries older than RateSpec.D are pruned, and the
// request is admitted iff the resulting log size is at most R — so a
// rejected request still occupies a log slot until it ages out.
package slidinglog

import (
	"context"
	"time"

	"github.com/ratevalve/ratevalve"
	"github.com/ratevalve/ratevalve/internal/clock"
	"github.com/ratevalve/ratevalve/internal/keystore"
)

// Options configures a Store.
type Options struct {
	// IdleTTL is how long an identifier can sit unused before its log is
	// evicted. Default is twice the RateSpec's period.
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

// state is the per-identifier timestamp log (spec §3's sliding log row).
// Entries are kept oldest-first so pruning only trims a prefix.
type state struct {
	log []time.Time
}

// Store is a local, in-process Sliding Window Log. It implements
// ratevalve.Store.
type Store struct {
	spec ratevalve.RateSpec
	clk  clock.Clock
	keys *keystore.Store[state]
}

// New creates a Sliding Window Log store for spec, applying opts.
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

// Consume appends cost copies of now to the log unconditionally, prunes
// entries older than RateSpec.D, and admits iff the resulting size is at
// most R (spec §4.6). A rejected request's timestamps stay in the log and
// count against admission until they age out, matching the "admitted and
// attempted" semantics spec §3 describes for this algorithm's state.
func (s *Store) Consume(_ context.Context, key string, cost int64) (ratevalve.Decision, error) {
	now := s.clk.Now()
	cutoff := now.Add(-s.spec.D)

	st, allowed := s.keys.Update(key, func(cur state, exists bool) (state, bool) {
		for i := int64(0); i < cost; i++ {
			cur.log = append(cur.log, now)
		}
		cur.log = prune(cur.log, cutoff)
		return cur, int64(len(cur.log)) <= s.spec.R
	})

	remaining := s.spec.R - int64(len(st.log))
	var reset *time.Time
	if n := len(st.log); n > 0 {
		r := st.log[n-1].Add(s.spec.D)
		reset = &r
	}
	return ratevalve.Decision{
		Allowed:   allowed,
		Remaining: float64(max(0, remaining)),
		Reset:     reset,
	}, nil
}

// prune drops entries at or before cutoff, relying on log being sorted
// oldest-first so only a prefix needs scanning.
func prune(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0], log[i:]...)
}

// LimitHeaderValue reports the raw request budget R, the natural unit for
// a log-based counter.
func (s *Store) LimitHeaderValue(spec ratevalve.RateSpec) float64 {
	return float64(spec.R)
}

// Close stops the eviction sweep.
func (s *Store) Close() error {
	return s.keys.Close()
}
