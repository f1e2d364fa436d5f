// Package store defines how clients talk to one database: a raw command executor and a typed
// interface on top of it, together with the error type shared by every store implementation.
//
// Layers:
//
//   - Executor: Exec(argv) runs one command vector (argv[0] is the command name, matched
//     case-insensitively) and returns the command.Reply. Info returns statistics of the
//     database. This is the only thing a store implementation has to provide.
//
//   - IStore: typed methods for the string commands (Set, Get, GetSet, SetRange, GetRange,
//     MGet, MSet, MSetNX, IncrBy, IncrByFloat, Append, StrLen, Delete, Exists) and the group
//     cache (GroupSet, GroupGet, GroupDelete, GroupRecency, GroupOldest, GroupRefCount).
//     Wrap turns any Executor into an IStore by building the command vectors and converting
//     the replies, so local, replicated and remote stores behave identically.
//
//   - Error: every error returned by a store is a *Error with a RetCode. Command errors keep
//     their kind across process boundaries: errors.Is(err, command.ErrWrongType) works on a
//     reply that travelled through raft or RPC, because Unwrap rebuilds the command error
//     from the code. Failures of the store itself (raft timeouts, broken connections,
//     journal writes) use RetCInternalError.
//
// Implementations:
//
//   - lstore: executes commands in process against a command.DB with wall-clock time and
//     an optional append-only journal. See "github.com/ValentinKolb/sKV/lib/store/lstore".
//
//   - dstore: replicates write commands through the Dragonboat RAFT library, serves reads
//     from the local replica. See "github.com/ValentinKolb/sKV/lib/store/dstore".
//
//   - rpc/client.RPCStore: sends command vectors to a remote shard.
//
// Example:
//
//	s, err := lstore.NewLocalStore(factory, nil)
//	ok, err := s.Set("session", token, store.SetOptions{NX: true, TTL: time.Minute})
//	n, err := s.IncrBy("visits", 1)
//	if errors.Is(err, command.ErrNotInteger) {
//		// visits holds something else
//	}
//
// DBFactory abstracts the creation of the keyspace engine (db.KVDB) a store runs on.
package store
