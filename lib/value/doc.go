// Package value implements the scalar value representation used for string keys.
//
// A Value is one of two variants:
//
//   - Owned: a value allocated for exactly one association (a key in the primary keyspace or an
//     entry in a group cache). Owned values are encoded either as a raw byte sequence or as a
//     64-bit integer.
//   - Shared: a member of the process-wide pool of small integers in the range
//     [0, SharedIntegers). Pool members are created once at package initialisation and are never
//     mutated, so any number of keys can reference the same instance.
//
// Copy-on-write
//
// A Value must only be mutated in place when it is exclusively owned. Every mutating command
// therefore calls EnsureExclusive first, which replaces a shared or aliased value with a private
// raw copy and rebinds the key to it:
//
//	v = value.EnsureExclusive(keyspace, key, v)
//	v.Append(fragment)
//
// The mutating methods (Append, WriteAt, SetInt) panic if they are called on a shared value or on
// a value with more than one owner, turning an aliasing bug into an immediate failure instead of a
// silent corruption of other keys.
//
// Encoding helpers
//
//   - EncodeCandidate turns user supplied bytes into a Value, reusing the shared pool when possible.
//   - FromInt64 creates the value for an integer result (shared or owned integer encoding).
//   - ParseInt64, ParseFloat and FormatFloat implement the number syntax accepted by the
//     increment commands. ParseExtFloat and Value.ExtFloat read floats at FloatPrec bits, the
//     precision INCRBYFLOAT computes with.
//
// Thread-safety: shared pool members are read-only and safe to use from any goroutine. Owned
// values are not synchronised; callers serialise access per database.
package value
