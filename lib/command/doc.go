// Package command implements the string and group commands of sKV on top of a per database
// context.
//
// A DB bundles the primary keyspace (a db.KVDB), the group engine (lib/group) and a sink for
// keyspace events (lib/notify). Commands are argument vectors, the first element names the
// command:
//
//	res := database.Exec(nowMillis, [][]byte{[]byte("SET"), []byte("k"), []byte("v"), []byte("PX"), []byte("500")})
//
// Command table:
//
// Every command has a case-insensitive name, an arity and flags (see Lookup and Commands). A
// positive arity is the exact number of arguments including the name, a negative arity is the
// minimum. Write commands run under the exclusive database lock, readonly commands share the
// read lock. Group reads (GGET) are write commands because they move the group in the recency
// order.
//
//	strings:  SET SETNX SETEX PSETEX GET GETSET SETRANGE GETRANGE MGET MSET MSETNX
//	          INCR DECR INCRBY DECRBY INCRBYFLOAT APPEND STRLEN
//	keyspace: DEL EXISTS
//	groups:   GSET GGET GDEL GRECENCY GOLDEST GREFCOUNT
//
// Time:
//
// Exec takes the time of the command in unix milliseconds instead of reading a clock. Relative
// expiries (EX, PX, SETEX, PSETEX) are turned into absolute ones using this time, and a key whose
// expiry is <= now does not exist for the command. Executing the same commands with the same
// times on two databases yields the same state, which the replicated store depends on.
//
// Replies and errors:
//
// A Reply is a status, integer, bulk string, null, array or error. Errors are *Error values with
// a Kind from a closed taxonomy (WrongType, SyntaxError, NotAnInteger, Overflow, ...), errors.Is
// compares the kind so the sentinels (ErrOverflow, ...) match whatever the message says. Every
// error is detected before the command modifies anything.
//
// Propagation:
//
// Result.Propagate holds the arguments that reproduce the effect of a write command when
// executed again at any later time. Relative expiries are rewritten as PXAT, INCRBYFLOAT is
// rewritten as "SET key <result> KEEPTTL" and commands that changed nothing propagate nothing.
// The local store journals these vectors.
//
// Values:
//
// Values follow the ownership rules of lib/value: small integers alias the shared pool, and every
// in-place mutation (APPEND, SETRANGE, INCR on an owned integer) works on an exclusively owned
// value, unsharing it first through value.EnsureExclusive.
//
// Persistence:
//
// DB.Save writes two length prefixed sections, the keyspace snapshot followed by the group
// snapshot. DB.Load reads them back and replaces the whole database.
package command
