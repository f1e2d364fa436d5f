// Package dstore runs the string and group command set on a replicated shard using the
// Dragonboat RAFT consensus library. It implements store.Executor on top of a NodeHost and
// hands it to store.Wrap, so callers get the same typed store.IStore as with lstore.
//
// Architecture:
//
//   - Store Client (store.go): decides per command name whether a command is proposed through
//     the log or served as a query. Write commands (command.Spec.IsWrite) are proposed, every
//     other command goes through SyncRead.
//
//   - State Machine (statemachine.go): a Dragonboat IConcurrentStateMachine holding one
//     command.DB. Update executes proposed commands, Lookup serves queries and INFO.
//
//   - Wire Format (internal package): Command and Query carry the command vector together with
//     the proposing node's clock.
//
// Time:
//
//	Expiry in this store is absolute. Every proposed command carries the wall clock of the node
//	that proposed it (unix milliseconds) and the state machine executes the command at exactly
//	that time. Replicas therefore never read their own clock while applying the log: a key that
//	expires on one replica expires at the same log position on all of them.
//	The logical clock of each replica only moves forward, so a proposal from a node with a lagging
//	clock does not resurrect keys a previous command already saw as expired.
//
// Write Operations:
//
//	1. The command vector is serialized into a Command with the current time
//	2. The Command is proposed via SyncPropose (retried on ErrSystemBusy)
//	3. Once committed, every replica executes it in its Update method
//	4. The binary encoded command.Reply travels back in sm.Result.Data
//
//	The RetCode in sm.Result.Value only signals transport level failures (bad encoding).
//	Command errors such as WRONGTYPE are part of the reply and are raised by store.Wrap.
//
// Read Operations:
//
//   - Linearizable Reads: readonly commands (GET, MGET, GETRANGE, STRLEN, EXISTS, GRECENCY,
//     GOLDEST, GREFCOUNT) use SyncRead, which waits until the local replica has applied all
//     committed entries.
//
//   - Stale Reads: INFO uses StaleRead.
//
//	GGET is not a read. It updates the recency of the group and is proposed like any write.
//	Lookup refuses write commands so a replica cannot diverge through the query path.
//
// Snapshotting and Recovery:
//
//	SaveSnapshot writes command.DB.Save (keyspace section followed by group section),
//	RecoverFromSnapshot replaces the whole database with command.DB.Load. The snapshot is fuzzy
//	with respect to concurrent queries, writes are never applied concurrently.
//
// Usage:
//
//	  nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	  if err != nil { ... }
//
//	  dbFactory := func() db.KVDB { return maple.NewMapleDB(nil) }
//
//	  err = nh.StartConcurrentReplica(
//	      clusterMembers,
//	      false,
//	      dstore.CreateStateMachineFactory(dbFactory, nil),
//	      shardConfig)
//	  if err != nil { ... }
//
//	  s := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//	  ok, err := s.Set("k", []byte("v"), store.SetOptions{TTL: time.Minute})
//
// Limitations:
//
//   - Majority Requirement: operations cannot proceed if a majority of replicas is unavailable
//   - Clock Skew: relative expiries are resolved on the proposing node, skew between nodes shifts
//     expiry times by the same amount
//
// For a single node, lstore provides the same interface with an optional append-only journal.
package dstore
