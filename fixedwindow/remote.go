package fixedwindow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ratevalve/ratevalve"
	"github.com/ratevalve/ratevalve/internal/clock"
	"github.com/ratevalve/ratevalve/internal/sharedhash"
)

// wireSeparator joins the counter and window-start fields in the value
// stored against a shared hash field, per spec §4.8.
const wireSeparator = "##"

// RemoteOptions configures a RemoteStore.
type RemoteOptions struct {
	// HashName scopes the shared hash this limiter's counters live under,
	// letting several limiters share one Redis/Memcached instance without
	// colliding on identifier names. Default "ratevalve:fixedwindow".
	HashName string

	// Clock is the time source. Default clock.New() (wall/monotonic).
	Clock clock.Clock
}

// Validate fills in defaults for any zero-valued field, mirroring strigo's
// Options.Validate()/Config.Validate() idiom.
func (o *RemoteOptions) Validate() error {
	if o.HashName == "" {
		o.HashName = "ratevalve:fixedwindow"
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return nil
}

// RemoteStore is a Fixed Window Counter backed by a shared hash (Redis or
// Memcached, per spec §4.8), so that multiple limiter instances agree on
// one counter per identifier instead of each keeping a local one.
type RemoteStore struct {
	spec ratevalve.RateSpec
	hash sharedhash.SharedHash
	opts RemoteOptions
}

// NewRemote creates a shared-backend Fixed Window Counter for spec, reading
// and writing through hash.
func NewRemote(spec ratevalve.RateSpec, hash sharedhash.SharedHash, opts ...func(*RemoteOptions)) (*RemoteStore, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var o RemoteOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	return &RemoteStore{spec: spec, hash: hash, opts: o}, nil
}

// WithHashName overrides the shared hash name.
func WithHashName(name string) func(*RemoteOptions) {
	return func(o *RemoteOptions) { o.HashName = name }
}

// WithRemoteClock overrides the time source, for tests.
func WithRemoteClock(c clock.Clock) func(*RemoteOptions) {
	return func(o *RemoteOptions) { o.Clock = c }
}

// Consume performs a single get-decide-set round trip against the shared
// hash, mirroring the local store's protocol (spec §4.8, identical to
// §4.5): a missing field or a stale window is written as a fresh window
// and admitted for free; otherwise the field is incremented and the
// request admitted iff count+cost is strictly less than R. A backend
// error is wrapped as ErrStoreUnavailable so Wrap's FailurePolicy can
// decide how to proceed; it does not retry.
//
// The read-modify-write pair is not atomic: under contention two
// concurrent requests can race and admit one request more than R allows,
// per spec §4.8's consistency note.
func (s *RemoteStore) Consume(ctx context.Context, key string, cost int64) (ratevalve.Decision, error) {
	now := s.opts.Clock.Now()
	ws := windowStart(now, s.spec.D)

	raw, found, err := s.hash.GetField(ctx, s.opts.HashName, key)
	if err != nil {
		return ratevalve.Decision{Remaining: ratevalve.RemainingUnknown}, s.wrapErr("get", key, err)
	}

	count, storedStart := int64(0), ws
	if found {
		count, storedStart, err = decodeValue(raw)
		if err != nil {
			// A corrupt value is treated like a fresh window rather than
			// surfacing a decode error to the caller.
			count, storedStart = 0, ws
		}
	}

	if !found || storedStart.Before(ws) {
		if err := s.hash.SetField(ctx, s.opts.HashName, key, encodeValue(0, ws)); err != nil {
			return ratevalve.Decision{Remaining: ratevalve.RemainingUnknown}, s.wrapErr("set", key, err)
		}
		reset := ws.Add(s.spec.D)
		return ratevalve.Decision{Allowed: true, Remaining: float64(s.spec.R), Reset: &reset}, nil
	}

	reset := storedStart.Add(s.spec.D)
	if count+cost < s.spec.R {
		count += cost
		if err := s.hash.SetField(ctx, s.opts.HashName, key, encodeValue(count, storedStart)); err != nil {
			return ratevalve.Decision{Remaining: ratevalve.RemainingUnknown}, s.wrapErr("set", key, err)
		}
		return ratevalve.Decision{Allowed: true, Remaining: float64(s.spec.R - count), Reset: &reset}, nil
	}

	return ratevalve.Decision{Allowed: false, Remaining: 0, Reset: &reset}, nil
}

// LimitHeaderValue reports the raw request budget R, matching the local
// Fixed Window store's convention.
func (s *RemoteStore) LimitHeaderValue(spec ratevalve.RateSpec) float64 {
	return float64(spec.R)
}

// Close releases the underlying shared hash connection.
func (s *RemoteStore) Close() error {
	return s.hash.Close()
}

// wrapErr reports every backend failure as ErrStoreUnavailable through
// StoreError.Is, regardless of the underlying cause.
func (s *RemoteStore) wrapErr(op, key string, err error) error {
	return &ratevalve.StoreError{Backend: "sharedhash", Operation: op, Key: key, Err: err}
}

func encodeValue(count int64, windowStart time.Time) string {
	return fmt.Sprintf("%d%s%d", count, wireSeparator, windowStart.Unix())
}

// decodeValue parses the wire format written by encodeValue. The window-
// start field is a decimal fraction of seconds per spec §6 — another
// process or language may write sub-second precision — so it is parsed as
// a float and truncated to the second rather than rejected as malformed.
func decodeValue(raw string) (int64, time.Time, error) {
	parts := strings.SplitN(raw, wireSeparator, 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("malformed fixed window value %q", raw)
	}
	count, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, time.Time{}, err
	}
	epoch, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, time.Unix(int64(epoch), 0).UTC(), nil
}
