package ratevalve

// FailurePolicy governs how a remote store's unavailability is surfaced to
// the middleware layer (spec §7). It is consulted only when Consume returns
// an error satisfying errors.Is(err, ErrStoreUnavailable).
type FailurePolicy int

const (
	// FailOpen admits the request when the backing store is unreachable.
	// The api-ratelimit-limit header is still attached; remaining is
	// reported as unknown (a nil Decision.Reset and Remaining of -1, which
	// Wrap renders as "unknown" instead of clamping to 0). This is the
	// recommended default: it favors availability over protection.
	FailOpen FailurePolicy = iota

	// FailClosed rejects the request with 429 and a body distinguishing
	// the rejection from a normal rate-limit-exceeded response.
	FailClosed
)

// RemainingUnknown is the sentinel Decision.Remaining value a store returns
// alongside an ErrStoreUnavailable error to signal that remaining capacity
// could not be determined.
const RemainingUnknown = -1
