package ratevalve

import (
	"errors"
	"fmt"
	"net/http"
)

// IdentifierFunc derives the rate-limit key for an incoming request. A
// non-nil error is treated as a host-side client error: the limiter is
// never consulted and the request is rejected with 400 before Wrap's
// handler logic runs.
type IdentifierFunc func(r *http.Request) (string, error)

// wrapOptions collects the per-invocation settings Wrap accepts.
type wrapOptions struct {
	cost   int64
	policy FailurePolicy
}

// WrapOption customizes Wrap's behavior.
type WrapOption func(*wrapOptions)

// WithCost sets the token/request cost charged per request. Default 1.
func WithCost(cost int64) WrapOption {
	return func(o *wrapOptions) { o.cost = cost }
}

// WithFailurePolicy sets how Wrap behaves when the store reports
// ErrStoreUnavailable. Default FailOpen.
func WithFailurePolicy(p FailurePolicy) WrapOption {
	return func(o *wrapOptions) { o.policy = p }
}

// Wrap adapts handler with rate limiting: on each request it derives an
// identifier, consults store, attaches rate-limit headers, and either
// invokes handler or short-circuits with 429.
//
// Per request:
//  1. identify is called to obtain the key. A returned error is surfaced
//     as a 400 to the caller; the store is never consulted.
//  2. store.Consume(ctx, key, cost) produces a Decision.
//  3. Response headers are attached from the Decision.
//  4. On Decision.Allowed, handler runs and its response is returned as-is
//     (headers set before handler runs, so handler may still add its own).
//  5. Otherwise, the wrapped handler is skipped and a 429 is written with
//     body "Rate Limit for <key> exceeded."
func Wrap(handler http.Handler, identify IdentifierFunc, spec RateSpec, store Store, opts ...WrapOption) http.Handler {
	o := wrapOptions{cost: 1, policy: FailOpen}
	for _, opt := range opts {
		opt(&o)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := identify(r)
		if err != nil || key == "" {
			http.Error(w, fmt.Sprintf("%v", errors.Join(ErrMissingIdentifier, err)), http.StatusBadRequest)
			return
		}

		decision, err := store.Consume(r.Context(), key, o.cost)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				handleUnavailable(w, r, handler, spec, store, o.policy)
				return
			}
			http.Error(w, "Rate limiter error.", http.StatusInternalServerError)
			return
		}

		for name, value := range Headers(store, spec, decision) {
			w.Header().Set(name, value)
		}

		if !decision.Allowed {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, "Rate Limit for %s exceeded.", key)
			return
		}

		handler.ServeHTTP(w, r)
	})
}

func handleUnavailable(w http.ResponseWriter, r *http.Request, handler http.Handler, spec RateSpec, store Store, policy FailurePolicy) {
	w.Header().Set(HeaderLimit, formatFloat(LimitValue(store, spec)))
	if policy == FailClosed {
		w.Header().Set(HeaderRemaining, "0")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "Rate limiter unavailable.")
		return
	}
	w.Header().Set(HeaderRemaining, "unknown")
	handler.ServeHTTP(w, r)
}
