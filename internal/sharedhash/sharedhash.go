// Package sharedhash abstracts the "shared hash keyed by (hash_name,
// identifier)" storage model spec §4.8 requires for the remote Fixed
// Window store: one hash per rate-limited resource, one field per
// identifier, value the wire string "<count>##<window_start_epoch_seconds>".
//
// Redis backs this with a native hash (HGET/HSET). Memcached has no hash
// data type, so its implementation emulates one with flat "hash:field"
// keys — the same wire format, a different storage shape underneath,
// which is exactly the interchangeability this interface exists to prove.
package sharedhash

import "context"

// SharedHash is a keyed hash-field store: GetField/SetField operate on one
// field of one named hash at a time. Implementations need not make the
// read-modify-write atomic; spec §4.8 explicitly allows the surplus-
// admission race under contention in the single-round-trip case.
type SharedHash interface {
	// GetField returns the field's value and true, or ("", false, nil) if
	// the field does not exist.
	GetField(ctx context.Context, hashName, field string) (string, bool, error)

	// SetField writes the field's value, creating the hash if necessary.
	SetField(ctx context.Context, hashName, field, value string) error

	// Close releases any connection held by the implementation.
	Close() error
}
