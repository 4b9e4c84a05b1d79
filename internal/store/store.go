package store

import "context"

// Store is the durable key-value persistence layer shared by the cache, the
// rate limiter's usage stats and the export status flag. Values are
// JSON-serialized. The process can be killed between any two calls, so
// callers must treat a read failure as "no data available" rather than a
// fatal condition.
type Store interface {
	// Get unmarshals the value stored under key into out and reports whether
	// the key was present.
	Get(ctx context.Context, key string, out any) (bool, error)

	// Set marshals value and writes it under key, overwriting any previous
	// value.
	Set(ctx context.Context, key string, value any) error

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error

	// Keys returns every stored key with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}
