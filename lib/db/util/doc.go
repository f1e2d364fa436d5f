// Package util provides building blocks for keyspace engines that satisfy the db.KVDB interface.
//
// The package contains:
//   - functions: seeded string hashing and shard selection
//   - mapheap: a generic min-heap with key based access, used to schedule key expiry
//   - mpsc: a lock-free multi-producer single-consumer queue that hands items to one goroutine
//     (expiry bookkeeping in the engine, keyspace event delivery in the notify package)
//
// None of these types know anything about values or commands, they are plain data structures
// that can be reused by any engine implementation.
package util
