package ratevalve

import (
	"context"
	"strconv"
	"time"
)

// Decision is the outcome of a single Store.Consume call.
type Decision struct {
	// Allowed reports whether the request should reach the handler.
	Allowed bool

	// Remaining is the store's notion of capacity left after this call,
	// never negative on the allow path. Its units are algorithm-specific:
	// tokens/cost for the bucket algorithms, requests for the window
	// algorithms.
	Remaining float64

	// Reset is when the current window/log entry expires, or nil when the
	// algorithm does not report one (Token Bucket, Leaky Bucket, Sliding
	// Window Counter).
	Reset *time.Time
}

// Store is the uniform decision contract every algorithm implements:
// given a key and a cost, decide whether the request is admitted.
type Store interface {
	Consume(ctx context.Context, key string, cost int64) (Decision, error)
}

// LimitReporter is an optional interface a Store can implement to control
// the value reported in the api-ratelimit-limit header. Token Bucket and
// Leaky Bucket report RateSpec.PerSecond() by default (no LimitReporter
// needed); the window-based algorithms report the raw request budget R,
// since "requests per window" is the natural unit for a counter.
type LimitReporter interface {
	LimitHeaderValue(spec RateSpec) float64
}

// Headers keys, per spec §4.2/§6.
const (
	HeaderLimit     = "api-ratelimit-limit"
	HeaderRemaining = "api-ratelimit-remaining"
	HeaderReset     = "api-ratelimit-reset"
)

// LimitValue reports the api-ratelimit-limit header value for store/spec,
// deferring to store's LimitReporter implementation when present.
func LimitValue(store Store, spec RateSpec) float64 {
	if lr, ok := store.(LimitReporter); ok {
		return lr.LimitHeaderValue(spec)
	}
	return spec.PerSecond()
}

// Headers builds the response header set for a decision against spec,
// using store's optional LimitReporter to decide the limit value. Exported
// so framework-specific adapters (Gin, Fiber) can reuse the same header
// derivation Wrap uses for net/http.
func Headers(store Store, spec RateSpec, d Decision) map[string]string {
	limit := LimitValue(store, spec)

	h := map[string]string{
		HeaderLimit:     formatFloat(limit),
		HeaderRemaining: formatFloat(maxFloat(0, d.Remaining)),
	}
	if d.Reset != nil {
		h[HeaderReset] = strconv.FormatInt(d.Reset.Unix(), 10)
	}
	return h
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
