package db

import (
	"io"

	"github.com/ValentinKolb/sKV/lib/value"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
)

// ObjectType is the data type tag of a keyspace entry.
// Only strings have commands in this code base, the remaining tags exist so that a key holding
// another type is reported as a type mismatch instead of being treated as a string.
type ObjectType uint8

const (
	TypeString ObjectType = iota
	TypeList
	TypeHash
	TypeSet
)

func (t ObjectType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	default:
		return "unknown"
	}
}

// Object is the typed value stored under a key.
type Object struct {
	Type ObjectType
	Val  *value.Value
}

// StringObject wraps v as a string object
func StringObject(v *value.Value) Object {
	return Object{Type: TypeString, Val: v}
}

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureAdd            Feature = 1 << iota // Support for Add operations
	FeatureSetKey                             // Support for SetKey operations
	FeatureOverwrite                          // Support for Overwrite and Rebind operations
	FeatureLookup                             // Support for Lookup operations
	FeatureExpire                             // Support for SetExpire and ExpireAt operations
	FeatureDelete                             // Support for Delete operations
	FeatureHas                                // Support for Has operations
	FeatureSave                               // Support for Save operations
	FeatureLoad                               // Support for Load operations
	FeatureGarbageCollect                     // Support for background removal of expired keys
)

func (f Feature) String() string {
	switch f {
	case FeatureAdd:
		return "Add"
	case FeatureSetKey:
		return "SetKey"
	case FeatureOverwrite:
		return "Overwrite"
	case FeatureLookup:
		return "Lookup"
	case FeatureExpire:
		return "Expire"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	case FeatureGarbageCollect:
		return "GarbageCollect"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	Keys              int            `json:"keys"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines the primary keyspace of one logical database.
// It maps string keys to typed objects with an optional absolute expiry.
//
// Every operation takes the logical time `now` (milliseconds) of the command that issues it.
// Entries whose expiry is <= now are treated as absent by every operation, regardless of
// whether the background collector has removed them yet. The database never reads a wall clock
// on its own, so two databases fed the same operations with the same times end in the same state.
//
// Values stored in the keyspace are ownership counted: installing a value retains it, replacing
// or removing it releases it (see value.Value.Retain).
//
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Add inserts obj under key if the key is absent. It reports whether the object was added.
	Add(key string, obj Object, now int64) (added bool)

	// SetKey inserts obj under key, replacing any existing object and clearing its expiry.
	SetKey(key string, obj Object, now int64)

	// Overwrite replaces the object under an existing key but keeps the key's expiry.
	// It reports false (and does nothing) if the key is absent.
	Overwrite(key string, obj Object, now int64) (ok bool)

	// Rebind replaces the value of an existing key, keeping its type and expiry.
	// It implements value.Rebinder and is used for copy-on-write unsharing.
	Rebind(key string, v *value.Value)

	// SetExpire attaches the absolute expiry `at` (milliseconds) to an existing key.
	// at == 0 removes the expiry. It reports false if the key is absent.
	SetExpire(key string, at int64, now int64) (ok bool)

	// Delete removes a key. It reports whether the key existed.
	Delete(key string, now int64) (deleted bool)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Lookup returns the object stored under key.
	Lookup(key string, now int64) (obj Object, found bool)

	// ExpireAt returns the absolute expiry of key (0 = none) and whether the key exists.
	ExpireAt(key string, now int64) (at int64, found bool)

	// Has checks whether a key exists in the database.
	Has(key string, now int64) (found bool)

	// Len returns the number of stored keys, including expired keys the collector did not
	// remove yet.
	Len() int

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load restores the database state data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Returns true if the feature is supported, false otherwise.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// --------------------------------------------------------------------------
	// Clock Operations
	// --------------------------------------------------------------------------

	// SetClock advances the logical clock used by the background collector.
	// The clock never moves backwards.
	SetClock(now int64)

	// Clock returns the current logical clock of the database.
	Clock() (now int64)

	// Close closes the database.
	Close() (err error)
}
