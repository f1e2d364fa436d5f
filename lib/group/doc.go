// Package group implements the reference-counted group cache that lives next to the primary
// keyspace of every database.
//
// A group is the ordered list of keys a client reads or writes together. Its id is derived from
// the key list (DeriveID) and can be turned back into the list (ResolveMembers). Values written
// through group writes live in a secondary cache store, and a key stays in that store only while
// at least one credited group contains it.
//
// Components:
//
//   - Codec: DeriveID/ResolveMembers, a length-prefixed encoding ("3:foo5:hello") that is
//     unambiguous for any key bytes.
//   - Registry: group id -> last access on a logical clock that ticks once per touch, plus a
//     B-tree (tidwall/btree) ordered by recency that lists eviction candidates (Oldest).
//   - RefTable: key -> number of credited live groups containing the key. Bump is the single
//     entry point for changing a count, a count that reaches zero purges the key from the
//     cache store. Counts never go negative.
//   - CacheStore: key -> *value.Value, populated by group writes only.
//   - Engine: the three tables of one database and the operations Write, Read and Remove.
//
// Crediting:
//
// A group registered by a write increments the count of each member once. A group first seen by
// a read is registered for recency tracking only and is marked uncredited, its members are not
// counted. A later write over the same key list credits it. Removing a group decrements member
// counts only if the group was credited, so a group that was only ever read can never take
// references it did not add. Removing an unknown id does nothing.
//
// Thread-safety:
//
// None of the types are synchronised. The command layer owns one Engine per database and calls
// it under the database lock, which gives every operation the all-or-nothing behaviour of a
// single threaded command loop.
//
// Persistence:
//
// Engine.Save and Engine.Load write and read a binary snapshot (magic "SKVGRPS\x00") with the
// registry, the recency clock, the reference counts and the cached values. Replicated stores
// append it to the keyspace snapshot.
package group
