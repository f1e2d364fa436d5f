package group

import (
	"github.com/ValentinKolb/sKV/lib/value"
)

// --------------------------------------------------------------------------
// Secondary Cache Store
// --------------------------------------------------------------------------

// CacheStore maps keys to the values written through group writes.
// Stored values are retained, replaced or purged values are released.
type CacheStore struct {
	entries map[string]*value.Value
}

// NewCacheStore creates an empty cache store
func NewCacheStore() *CacheStore {
	return &CacheStore{entries: make(map[string]*value.Value)}
}

// Get returns the value stored for key
func (c *CacheStore) Get(key string) (*value.Value, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Put stores v under key, replacing any previous value
func (c *CacheStore) Put(key string, v *value.Value) {
	if old, ok := c.entries[key]; ok {
		if old == v {
			return
		}
		old.Release()
	}
	v.Retain()
	c.entries[key] = v
}

// Purge removes key and reports whether it was present
func (c *CacheStore) Purge(key string) bool {
	old, ok := c.entries[key]
	if !ok {
		return false
	}
	old.Release()
	delete(c.entries, key)
	return true
}

// Len returns the number of cached keys
func (c *CacheStore) Len() int {
	return len(c.entries)
}

// --------------------------------------------------------------------------
// Key Reference-Count Table
// --------------------------------------------------------------------------

// RefTable counts, per key, the live credited groups that contain the key.
// Bump is the only way to change a count, and it removes the key from the cache store as soon
// as its count drops to zero. Counts are never negative and zero counts are not stored.
type RefTable struct {
	counts map[string]int64
	cache  *CacheStore
}

// NewRefTable creates an empty table that purges from cache
func NewRefTable(cache *CacheStore) *RefTable {
	return &RefTable{
		counts: make(map[string]int64),
		cache:  cache,
	}
}

// Bump adds delta to the count of key and returns the new count.
//   - absent key, delta > 0: the key is registered with count delta
//   - absent key, delta <= 0: nothing happens
//   - a result <= 0 deletes the key from this table and from the cache store (purged = true)
func (t *RefTable) Bump(key string, delta int64) (count int64, purged bool) {
	current, ok := t.counts[key]
	if !ok {
		if delta <= 0 {
			return 0, false
		}
		t.counts[key] = delta
		return delta, false
	}

	next := current + delta
	if next <= 0 {
		delete(t.counts, key)
		t.cache.Purge(key)
		return 0, true
	}
	t.counts[key] = next
	return next, false
}

// Count returns the reference count of key (0 if absent)
func (t *RefTable) Count(key string) int64 {
	return t.counts[key]
}

// Len returns the number of referenced keys
func (t *RefTable) Len() int {
	return len(t.counts)
}
