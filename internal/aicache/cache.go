// Package aicache persists AI results in the durable store so repeated
// exports do not spend API quota on items already resolved. Entries expire
// after seven days and are only ever overwritten by fresher results.
package aicache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/store"
)

// Namespace partitions cached results by the kind of lookup they answer.
type Namespace string

const (
	NamespaceDomains Namespace = "domains"
	NamespaceNames   Namespace = "names"
)

// MaxAge is how long a cached result stays valid.
const MaxAge = 7 * 24 * time.Hour

const keyPrefix = "aicache:"

// Entry is a single cached result with its write time in epoch millis.
type Entry struct {
	Result    json.RawMessage `json:"result"`
	Timestamp int64           `json:"timestamp"`
}

// Cache reads and writes AI results through the durable store.
type Cache struct {
	store store.Store
	now   func() time.Time
}

// New creates a Cache backed by the given store.
func New(s store.Store) *Cache {
	return &Cache{store: s, now: time.Now}
}

func entryKey(ns Namespace, item string) string {
	return keyPrefix + string(ns) + ":" + item
}

// Lookup splits items into cached results and misses. A storage read failure
// is treated as a miss for every item: the caller recomputes instead of
// failing the run.
func (c *Cache) Lookup(ctx context.Context, items []string, ns Namespace) (map[string]json.RawMessage, []string) {
	cached := make(map[string]json.RawMessage)
	var missing []string

	nowMillis := c.now().UnixMilli()
	for _, item := range items {
		var e Entry
		ok, err := c.store.Get(ctx, entryKey(ns, item), &e)
		if err != nil {
			zap.L().Warn("cache read failed, treating remaining items as missing",
				zap.String("namespace", string(ns)),
				zap.Error(err),
			)
			return map[string]json.RawMessage{}, items
		}
		if ok && nowMillis-e.Timestamp < MaxAge.Milliseconds() {
			cached[item] = e.Result
		} else {
			missing = append(missing, item)
		}
	}

	zap.L().Debug("cache lookup",
		zap.String("namespace", string(ns)),
		zap.Int("cached", len(cached)),
		zap.Int("missing", len(missing)),
	)
	return cached, missing
}

// Save writes an entry for every item that has a result. Chunks operate on
// disjoint item sets, so last-writer-wins per key is fine.
func (c *Cache) Save(ctx context.Context, items []string, results map[string]json.RawMessage, ns Namespace) error {
	nowMillis := c.now().UnixMilli()
	for _, item := range items {
		result, ok := results[item]
		if !ok {
			continue
		}
		e := Entry{Result: result, Timestamp: nowMillis}
		if err := c.store.Set(ctx, entryKey(ns, item), e); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExpired physically removes entries older than MaxAge from both
// namespaces. Safe to call at any time; idempotent.
func (c *Cache) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, keyPrefix)
	if err != nil {
		return 0, err
	}

	nowMillis := c.now().UnixMilli()
	var expired []string
	for _, key := range keys {
		var e Entry
		ok, err := c.store.Get(ctx, key, &e)
		if err != nil || !ok {
			continue
		}
		if nowMillis-e.Timestamp >= MaxAge.Milliseconds() {
			expired = append(expired, key)
		}
	}

	if len(expired) == 0 {
		return 0, nil
	}
	if err := c.store.Remove(ctx, expired...); err != nil {
		return 0, err
	}
	zap.L().Info("cleaned expired cache entries", zap.Int("count", len(expired)))
	return len(expired), nil
}

// Clear removes every cached entry regardless of age.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, keyPrefix)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.store.Remove(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}
