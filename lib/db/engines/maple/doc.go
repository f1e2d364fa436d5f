// Package maple implements the primary keyspace (db.KVDB) as a sharded in-memory map with
// absolute key expiry, a background expiry collector and a binary snapshot format.
//
// The package focuses on:
//   - Concurrent access through sharding and lock-free data structures
//   - Expiry that is exact for readers and eventually reclaimed by a collector
//   - Ownership counting of stored values, the basis for copy-on-write in the command layer
//   - Persistent storage with fuzzy snapshots and a compact binary encoding
//
// Key Components:
//
//   - mapleImpl: The central database structure implementing db.KVDB. It routes keys to shards,
//     runs the collector and keeps the logical clock. The clock is the largest command time seen
//     (or set with SetClock), it only drives the collector. Readers and writers pass their own
//     time to every call.
//
//   - Shard: A partition of the keyspace. Each shard owns an xsync.MapOf from key to Entry, an
//     expiry heap and an event queue. Keys are assigned to shards by a seeded FNV-1a hash,
//     shifted right by 7 bits to use the better mixed high bits.
//
//   - Entry: A db.Object (type tag and *value.Value) plus the absolute expiry in milliseconds
//     (0 = none).
//
//   - Event System: Every write that adds, changes or removes an expiry pushes a Schedule or
//     Unschedule event on the shard's lock-free MPSC queue. Only the shard's collector reads the
//     queue, so the expiry heap needs no lock.
//
// Write Path:
//
// All writes run through a single compute function on top of xsync.MapOf.Compute. It hides
// entries that are expired at the caller's time (they behave like absent keys), applies the
// requested change, retains the new value and releases the replaced one, and pushes the
// matching collector event after the bucket lock is released.
//
// Value Ownership:
//
// A *value.Value stored under a key is retained once per key. Replacing the value releases it,
// storing the very same instance again (Overwrite with an unchanged value) keeps the count.
// Deleting a key, expiring it lazily or collecting it releases the value. The command layer
// asks value.Value.Exclusive before mutating in place and unshares through Rebind otherwise.
// Shared pool integers are not counted.
//
// Garbage Collection:
//
//   - One collector goroutine per shard alternates between draining the event queue into the
//     expiry heap and, every GCInterval, removing the entries whose expiry is <= the clock.
//   - Before deleting, the collector checks the entry again under the bucket lock. A key that
//     was rewritten in the meantime is left alone, its new expiry arrives as its own event.
//   - Readers never depend on the collector: Lookup, Has and ExpireAt treat an expired entry as
//     absent and delete it on the spot.
//   - Closing the database closes the event queues, which ends the collector goroutines.
//
// Persistence Format:
//
//  1. Magic number "SKVKEYS\x00" to identify the file format
//  2. Version number (currently 1)
//  3. Hash seed, so that a loaded database keeps its shard assignment
//  4. Logical clock
//  5. Number of entries
//  6. For each entry: key (u32 length + bytes), object type (u8), value encoding (u8),
//     expiry (i64), payload (i64 for integer encoded values, u32 length + bytes otherwise)
//
// All numbers are little endian. Save does not lock the keyspace, the snapshot is fuzzy and the
// caller is responsible for a consistent cut (the command layer holds the database lock).
// Load replaces the whole keyspace and restores small integers as shared pool instances.
//
// Metrics and Monitoring:
//
// GetInfo samples entry sizes into a go-metrics histogram to estimate the memory footprint and
// reports the exact shard sizes with their min, max, mean and standard deviation, together with
// the share of sampled entries that are expired but not yet collected.
package maple
