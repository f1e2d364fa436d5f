// Package db defines the primary keyspace of a logical database: the mapping from string keys to
// typed objects with an optional expiry. Command handlers in lib/command only talk to the
// keyspace through the KVDB interface, so engines can be swapped without touching them.
//
// The package focuses on:
//   - A narrow interface covering exactly what string commands need from a keyspace
//   - Typed objects, so that a key of a foreign type is detected instead of misread
//   - Feature discovery through capability flags
//   - Standardized persistence operations and metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The contract every engine satisfies. Conditional insertion (Add),
//     unconditional replacement that clears the expiry (SetKey), replacement that keeps the
//     expiry (Overwrite, Rebind), expiry management (SetExpire, ExpireAt), removal (Delete),
//     queries (Lookup, Has, Len), persistence (Save, Load) and the logical clock.
//
//   - Object: A type tag plus a *value.Value. Values carry their own ownership count, the
//     keyspace retains a value while it is stored and releases it when it is replaced,
//     deleted or expires. Command handlers rely on this count to decide whether a value may
//     be mutated in place (see lib/value).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method.
//
//   - Database Information: The DatabaseInfo structure reports an estimated size, the key
//     count, the implementation type and implementation specific metadata.
//
// Note on Time:
//   - Every operation receives the time `now` (unix milliseconds) of the command it belongs to.
//     Expiry times are absolute. An entry with expiry `at` is absent for every operation
//     with now >= at.
//   - The keyspace keeps a monotonic logical clock (the largest `now` seen, or set with
//     SetClock). Only the background collector uses it, to decide which entries can be freed.
//   - Engines never read the wall clock. A replicated store feeds every replica the same
//     command times and gets identical keyspaces.
//
// Note on Garbage Collection:
//   - Implementations must eventually remove expired entries to prevent memory leaks.
//   - External consistency does not depend on the collector: Lookup, Has and ExpireAt never
//     return an entry that is expired at the given time, even if it is still present
//     internally. Such entries are removed lazily on access.
//
// Related Packages:
//
// The engines/maple package (github.com/ValentinKolb/sKV/lib/db/engines/maple) provides a
// sharded in-memory implementation with a per-shard background expiry collector and a binary
// snapshot format.
//
// The util package (github.com/ValentinKolb/sKV/lib/db/util) provides the hashing, heap and
// queue primitives used by the engine.
//
// The testing package (github.com/ValentinKolb/sKV/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
