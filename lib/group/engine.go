package group

import (
	"github.com/ValentinKolb/sKV/lib/value"
)

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Engine ties the registry, the reference-count table and the cache store of one database
// together.
//
// Thread-safety: Engine is not safe for concurrent use. Callers serialise access per database
// (lib/command holds the database lock around every call).
type Engine struct {
	registry *Registry
	refs     *RefTable
	cache    *CacheStore
}

// WriteResult describes the effect of a group write
type WriteResult struct {
	ID       string   // derived group id
	Created  bool     // the group was not registered before
	Credited bool     // member reference counts were incremented by this write
	Written  []string // keys whose cache entry was written (non-empty values)
}

// RemoveResult describes the effect of a group removal
type RemoveResult struct {
	Removed bool     // the group was registered
	Purged  []string // keys that left the cache store
}

// NewEngine creates an empty engine
func NewEngine() *Engine {
	cache := NewCacheStore()
	return &Engine{
		registry: NewRegistry(),
		refs:     NewRefTable(cache),
		cache:    cache,
	}
}

// Write stores values[i] under keys[i] for every non-empty value and registers the group of keys.
// Member reference counts are incremented once per group, by the first write that sees the
// group uncredited. All keys count as members, also the ones whose value was skipped.
//
// keys and values must have the same length.
func (e *Engine) Write(keys []string, values [][]byte) WriteResult {
	res := WriteResult{ID: DeriveID(keys)}

	for i, k := range keys {
		if len(values[i]) == 0 {
			continue
		}
		e.cache.Put(k, value.EncodeCandidate(values[i]))
		res.Written = append(res.Written, k)
	}

	res.Created = e.registry.TouchOrCreate(res.ID)
	if e.registry.Credit(res.ID) {
		res.Credited = true
		for _, k := range keys {
			e.refs.Bump(k, 1)
		}
	}
	return res
}

// Read returns the cached value for every key (nil if absent) and touches the group of keys.
// A read never changes reference counts, a group first seen by a read is registered uncredited.
func (e *Engine) Read(keys []string) (values []*value.Value, id string) {
	values = make([]*value.Value, len(keys))
	for i, k := range keys {
		if v, ok := e.cache.Get(k); ok {
			values[i] = v
		}
	}

	id = DeriveID(keys)
	e.registry.TouchOrCreate(id)
	return values, id
}

// Remove unregisters a group and, if it was credited, decrements the count of every member.
// Keys reaching zero are purged from the cache store. Unknown ids are a silent no-op.
func (e *Engine) Remove(id string) RemoveResult {
	existed, credited := e.registry.Remove(id)
	if !existed {
		return RemoveResult{}
	}

	res := RemoveResult{Removed: true}
	if !credited {
		return res
	}

	// registered ids always come from DeriveID, so they resolve
	members, err := ResolveMembers(id)
	if err != nil {
		return res
	}
	for _, k := range members {
		if _, purged := e.refs.Bump(k, -1); purged {
			res.Purged = append(res.Purged, k)
		}
	}
	return res
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// Get returns the cached value of key
func (e *Engine) Get(key string) (*value.Value, bool) {
	return e.cache.Get(key)
}

// RefCount returns the number of credited live groups containing key
func (e *Engine) RefCount(key string) int64 {
	return e.refs.Count(key)
}

// Recency returns the last access time of a group
func (e *Engine) Recency(id string) (uint64, bool) {
	return e.registry.RecencyOf(id)
}

// Oldest lists up to n group ids, least recently used first.
// An eviction policy removes groups from the front of this list.
func (e *Engine) Oldest(n int) []string {
	return e.registry.Oldest(n)
}

// Stats is a summary of the engine state
type Stats struct {
	Groups     int    `json:"groups"`
	CachedKeys int    `json:"cached_keys"`
	RefKeys    int    `json:"ref_keys"`
	Clock      uint64 `json:"clock"`
}

// Stats returns a summary of the engine state
func (e *Engine) Stats() Stats {
	return Stats{
		Groups:     e.registry.Len(),
		CachedKeys: e.cache.Len(),
		RefKeys:    e.refs.Len(),
		Clock:      e.registry.Clock(),
	}
}
