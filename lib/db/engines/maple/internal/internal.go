package internal

import (
	"fmt"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Event Types are used to tell the collector about expiry changes
// --------------------------------------------------------------------------

type EventType int

const (
	EventTSchedule   EventType = iota // key got an expiry (or a new one)
	EventTUnschedule                  // key was removed or lost its expiry
)

func (e EventType) String() string {
	switch e {
	case EventTSchedule:
		return "Schedule"
	case EventTUnschedule:
		return "Unschedule"
	default:
		return "Unknown"
	}
}

type Event struct {
	Type EventType
	Key  string
	At   int64 // expiry for EventTSchedule
}

func (e Event) String() string {
	return fmt.Sprintf("Event{Type: %s, Key: %q, At: %d}", e.Type, e.Key, e.At)
}

// --------------------------------------------------------------------------
// Entry Type (object with metadata)
// --------------------------------------------------------------------------

// Entry stores an object together with its absolute expiry
type Entry struct {
	Obj      db.Object
	ExpireAt int64 // unix ms, 0 = no expiry
}

// Expired reports whether the entry is logically gone at time now
func (e Entry) Expired(now int64) bool {
	return e.ExpireAt != 0 && now >= e.ExpireAt
}

// Release drops the keyspace's ownership of the entry's value
func (e Entry) Release() {
	if e.Obj.Val != nil {
		e.Obj.Val.Release()
	}
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard is a partition of the keyspace.
// Data is safe for concurrent use, ExpireHeap is only touched by the shard's collector goroutine.
type Shard struct {
	Data       *xsync.MapOf[string, Entry]
	ExpireHeap *util.MapHeap[string]
	Events     *util.MPSCQueue[Event]
}

// NewShard creates an empty shard
func NewShard() *Shard {
	return &Shard{
		Data:       xsync.NewMapOf[string, Entry](),
		ExpireHeap: util.NewMapHeap[string](),
		Events:     util.NewMPSCQueue[Event](), // closed to stop the collector of this shard
	}
}

// GetShard returns the shard responsible for a key hash
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](hash uint64, shards []*T) *T {
	return shards[util.ShardIndex(hash, len(shards))]
}
