package group

import (
	"github.com/tidwall/btree"
)

// --------------------------------------------------------------------------
// Group Registry
// --------------------------------------------------------------------------

// groupEntry is the registry state of one group
type groupEntry struct {
	lastAccess uint64
	credited   bool // member reference counts were incremented for this group
}

// recencyItem orders groups by last access, ties broken by id
type recencyItem struct {
	at uint64
	id string
}

func recencyLess(a, b recencyItem) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return a.id < b.id
}

// Registry maps group ids to their last access time.
//
// Time is a logical clock that advances by one on every touch, timestamps are therefore unique
// and strictly ordered. A B-tree keeps the groups sorted by recency so the least recently used
// groups can be listed without a scan.
//
// Thread-safety: Registry is not synchronised, see Engine.
type Registry struct {
	groups    map[string]*groupEntry
	byRecency *btree.BTreeG[recencyItem]
	clock     uint64
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		groups:    make(map[string]*groupEntry),
		byRecency: btree.NewBTreeG[recencyItem](recencyLess),
	}
}

// TouchOrCreate stamps the group with the next clock value, registering it if needed.
// It reports whether the group was created.
func (r *Registry) TouchOrCreate(id string) (created bool) {
	r.clock++

	g, ok := r.groups[id]
	if ok {
		r.byRecency.Delete(recencyItem{at: g.lastAccess, id: id})
		g.lastAccess = r.clock
	} else {
		g = &groupEntry{lastAccess: r.clock}
		r.groups[id] = g
	}
	r.byRecency.Set(recencyItem{at: g.lastAccess, id: id})
	return !ok
}

// Credit marks a registered group as holding references on its members.
// It reports true only if the group was registered and not credited before, the caller then
// increments the member reference counts.
func (r *Registry) Credit(id string) bool {
	g, ok := r.groups[id]
	if !ok || g.credited {
		return false
	}
	g.credited = true
	return true
}

// IsCredited reports whether the group holds references on its members
func (r *Registry) IsCredited(id string) bool {
	g, ok := r.groups[id]
	return ok && g.credited
}

// RecencyOf returns the last access time of the group
func (r *Registry) RecencyOf(id string) (uint64, bool) {
	g, ok := r.groups[id]
	if !ok {
		return 0, false
	}
	return g.lastAccess, true
}

// Remove deletes the group. Unknown ids are ignored.
func (r *Registry) Remove(id string) (existed, credited bool) {
	g, ok := r.groups[id]
	if !ok {
		return false, false
	}
	delete(r.groups, id)
	r.byRecency.Delete(recencyItem{at: g.lastAccess, id: id})
	return true, g.credited
}

// Oldest returns up to n group ids, least recently used first
func (r *Registry) Oldest(n int) []string {
	if n <= 0 {
		return nil
	}
	ids := make([]string, 0, min(n, len(r.groups)))
	r.byRecency.Scan(func(item recencyItem) bool {
		ids = append(ids, item.id)
		return len(ids) < n
	})
	return ids
}

// Len returns the number of registered groups
func (r *Registry) Len() int {
	return len(r.groups)
}

// Clock returns the current value of the recency clock
func (r *Registry) Clock() uint64 {
	return r.clock
}

// restore inserts a group with a known state, used when loading snapshots
func (r *Registry) restore(id string, lastAccess uint64, credited bool) {
	if g, ok := r.groups[id]; ok {
		r.byRecency.Delete(recencyItem{at: g.lastAccess, id: id})
	}
	r.groups[id] = &groupEntry{lastAccess: lastAccess, credited: credited}
	r.byRecency.Set(recencyItem{at: lastAccess, id: id})
	if lastAccess > r.clock {
		r.clock = lastAccess
	}
}
