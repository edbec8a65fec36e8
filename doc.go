/*
Package ratevalve provides pluggable request rate-limiting algorithms for
Go services, meant to sit behind an HTTP-style middleware adapter.

# Overview

ratevalve implements five rate limiting algorithms behind one decision
contract. Each algorithm trades off burst tolerance, accuracy near window
boundaries, and memory footprint differently. The package does not own
routing, identifier extraction, or logging: the host supplies those, and
ratevalve supplies the decision of whether to admit a request.

# Algorithms

Token Bucket

Refills continuously at RateSpec.PerSecond() tokens/second up to a
configured capacity. Requests of variable cost are admitted as long as
enough tokens are available, and bursts up to the full capacity are
allowed immediately.

	spec, _ := ratevalve.NewRateSpec(6, time.Minute)
	store, _ := tokenbucket.New(spec)
	decision, err := store.Consume(ctx, "user:123", 1)

Leaky Bucket (as a meter)

The dual of Token Bucket: a level drains at a constant rate and a
request is admitted only if adding its cost would not overflow capacity.

	store, _ := leakybucket.New(spec)

Fixed Window Counter

A counter aligned to epoch-floored windows of length D, reset to zero
whenever a request lands in a later window. The request that establishes
or rolls over a window is admitted for free without incrementing the
counter; every later request in the same window is admitted only while
its count stays strictly below R. See fixedwindow's doc comment for the
exact boundary behavior. Also available as a Remote variant backed by a
shared hash (Redis or Memcached), for use across multiple processes.

	local, _ := fixedwindow.New(spec)
	hash, _ := sharedhash.DialRedis(ctx, "localhost:6379")
	remote, _ := fixedwindow.NewRemote(spec, hash)

Sliding Window Log

Keeps the timestamp of every request per identifier, admitted or
rejected, and prunes entries older than the window on each call. Exact, at the cost of O(n) work and memory
proportional to the request rate.

Sliding Window Counter

Approximates the sliding log by tracking two adjacent windows of length D
and blending their counts, weighted by how far into the current window
now falls, giving near-sliding-log accuracy with fixed-size state.

# Middleware

Wrap adapts any http.Handler:

	handler := ratevalve.Wrap(next, identifyByIP, spec, store)
	http.ListenAndServe(":8080", handler)

Framework-specific adapters for Gin and Fiber live under middleware/gin
and middleware/fiber.

# Storage backends

Local algorithms hold state in an in-process map guarded by a striped
lock (internal/keystore) and evict identifiers idle longer than the
configured TTL. The remote Fixed Window store externalizes state to a
shared hash (internal/sharedhash), with Redis and Memcached
implementations, and is best-effort: a single read-modify-write round
trip, not linearizable across concurrent requests for the same key.
*/
package ratevalve
