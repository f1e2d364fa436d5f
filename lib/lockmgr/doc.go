// Package lockmgr implements a locking mechanism on top of any store.IStore.
// It provides a simple way to coordinate access to shared resources across
// multiple processes or nodes.
//
// The lockmgr only ever stores in the provided IStore and has no other internal
// state. Therefore it is safe to be created multiple times on the same store,
// even once per acquire or release. As long as the same store is used every time,
// all locks work as expected.
//
// Implementation Approach:
//
//	- Lock Acquisition: a string key is created with SET NX. Only one requester can
//	  create the key, the value is a random UUID that identifies the lock holder.
//	  A successful SET NX replies OK, a lost race replies null, so no follow-up read
//	  is needed.
//
//	- Timeouts: a timeout becomes the PX option of the SET, the store expires the key
//	  and with it the lock. This prevents deadlocks if a client crashes.
//
//	- Safe Release: ReleaseLock reads the key, compares the owner ID and only then
//	  deletes the key. A lock held by someone else is never deleted by a stale owner,
//	  except when the lock expires between the read and the delete.
//
// Thread Safety:
//
//	The lockmgr is as thread-safe as the underlying store.IStore implementation.
//
// Distributed Considerations:
//
//	With dstore the SET NX is proposed through the raft log, so at most one node in the
//	cluster can acquire a lock. Expiry is computed from the clock of the acquiring node.
//
// Usage Example:
//
//	lm := lockmgr.NewLockManager(s)
//
//	acquired, ownerID, err := lm.AcquireLock("resource:123", 30*time.Second)
//	if err != nil {
//	    // Handle error
//	}
//
//	if acquired {
//	    // Use the resource
//	    released, err := lm.ReleaseLock("resource:123", ownerID)
//	}
//
// Performance Impact:
//
//	- AcquireLock: one SET
//	- ReleaseLock: one GET followed by a conditional DEL
package lockmgr
