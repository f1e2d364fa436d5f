package store

import (
	"time"

	"github.com/ValentinKolb/sKV/lib/command"
	"github.com/ValentinKolb/sKV/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new keyspace used by the store.
// This is used to abstract the creation of the keyspace from the store implementation.
type DBFactory func() db.KVDB

// Executor runs raw commands against one database.
// Command errors are part of the reply, the returned error reports failures of the store itself
// (raft, transport, journal) and is always a *Error.
type Executor interface {
	// Exec executes argv (argv[0] is the command name) and returns its reply.
	Exec(argv [][]byte) (reply command.Reply, err error)
	// Info returns a summary of the database behind the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	Info() (info command.Info, err error)
}

// SetOptions are the optional conditions of Set
type SetOptions struct {
	NX      bool          // only set if the key does not exist
	XX      bool          // only set if the key exists
	TTL     time.Duration // expire the key after TTL (millisecond precision), 0 = no expiry
	KeepTTL bool          // keep the expiry of an existing key
}

// IStore is the typed interface for interacting with the string and group commands of one
// database. Command errors are returned as *Error, errors.Is matches them against the
// sentinels of lib/command (for example command.ErrWrongType).
type IStore interface {
	Executor

	// --------------------------------------------------------------------------
	// Strings
	// --------------------------------------------------------------------------

	// Set stores value under key. ok is false if the NX or XX condition prevented the write.
	Set(key string, value []byte, opts SetOptions) (ok bool, err error)
	// Get returns the value of key. found is false if the key does not exist.
	Get(key string) (value []byte, found bool, err error)
	// GetSet stores value under key and returns the previous value.
	GetSet(key string, value []byte) (old []byte, found bool, err error)
	// SetRange overwrites part of the value of key starting at offset and returns the new length.
	SetRange(key string, offset int64, fragment []byte) (length int64, err error)
	// GetRange returns the bytes of the value of key between start and end (inclusive).
	GetRange(key string, start, end int64) (value []byte, err error)
	// MGet returns the values of keys, nil for absent keys.
	MGet(keys ...string) (values [][]byte, err error)
	// MSet stores values[i] under keys[i].
	MSet(keys []string, values [][]byte) (err error)
	// MSetNX stores all pairs if none of the keys exists. ok reports whether anything was written.
	MSetNX(keys []string, values [][]byte) (ok bool, err error)
	// IncrBy adds delta to the integer value of key and returns the result.
	IncrBy(key string, delta int64) (value int64, err error)
	// IncrByFloat adds delta to the float value of key and returns the result.
	IncrByFloat(key string, delta float64) (value float64, err error)
	// Append appends fragment to the value of key and returns the new length.
	Append(key string, fragment []byte) (length int64, err error)
	// StrLen returns the length of the value of key, 0 if the key does not exist.
	StrLen(key string) (length int64, err error)
	// Delete removes keys and returns how many existed.
	Delete(keys ...string) (deleted int64, err error)
	// Exists returns how many of keys exist.
	Exists(keys ...string) (count int64, err error)

	// --------------------------------------------------------------------------
	// Groups
	// --------------------------------------------------------------------------

	// GroupSet writes the group cache entries keys[i] = values[i] and registers the group.
	GroupSet(keys []string, values [][]byte) (err error)
	// GroupGet reads the group cache entries of keys, nil for absent keys.
	GroupGet(keys ...string) (values [][]byte, err error)
	// GroupDelete removes a group. ok is false if the group did not exist.
	GroupDelete(id string) (ok bool, err error)
	// GroupRecency returns the last access of a group on the recency clock.
	GroupRecency(id string) (at uint64, found bool, err error)
	// GroupOldest returns up to n group ids, least recently used first.
	GroupOldest(n int) (ids []string, err error)
	// GroupRefCount returns the number of credited groups containing key.
	GroupRefCount(key string) (count int64, err error)
}
