// Package lstore implements a local, in-memory, single-node store based on the store.IStore
// interface. It executes commands directly against a command.DB built on any db.KVDB
// implementation, using the wall clock (or an injected clock) as the command time.
//
// Key Features:
//   - Every string and group command of lib/command, typed through store.Wrap
//   - Optional append-only journal that survives process restarts
//   - Keyspace events forwarded to a notify.Sink
//   - Thread-safe operations for concurrent access
//
// Implementation Details:
//
//   - Journal: Every write command that changed the database appends its propagation vector
//     (see command.Result) as a RESP array to <JournalDir>/shard-<id>.aof. Relative expiries
//     are already rewritten as absolute PXAT times and INCRBYFLOAT as a plain SET, so replaying
//     the file later rebuilds the same state. Keys whose expiry passed while the process was
//     down simply do not come back.
//
//   - Replay: NewLocalStore replays the journal before returning. A command cut off by a crash
//     at the end of the file is dropped and the file is truncated to the last complete command.
//
//   - Ordering: With a journal, write commands are executed and appended under one mutex so the
//     journal order matches the execution order. Readonly commands never take it.
//
// Thread Safety:
//
//	All operations in the local store are thread-safe. Commands of the database are serialised
//	by command.DB, the journal has its own lock.
//
// Usage Example:
//
//	factory := func() db.KVDB { return maple.NewMapleDB(nil) }
//	s, err := lstore.NewLocalStore(factory, &lstore.Options{JournalDir: "./data"})
//	if err != nil {
//	    // Handle error
//	}
//	defer s.Close()
//
//	// Store a value with 5-minute expiration
//	_, err = s.Set("session:123", sessionData, store.SetOptions{TTL: 5 * time.Minute})
//
//	// Retrieve the value
//	value, exists, err := s.Get("session:123")
//
// For distributed scenarios requiring consensus across multiple nodes, consider
// using the dstore package instead, which provides a RAFT-based implementation
// of the same interface with strong consistency guarantees.
package lstore
