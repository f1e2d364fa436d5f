// Package util
//
// This file provides a min-heap whose items can also be addressed by key.
//
// The engine uses it to schedule key expiry: every key with a deadline is stored with the
// deadline as priority, the collector peeks at the smallest deadline and the write path can
// reschedule or drop a key in O(log n) when its expiry changes.
//
//	h := NewMapHeap[string]()
//	h.AddItem("session:1", deadline)   // insert or reschedule
//	item, ok := h.Peek()               // earliest deadline
//	h.RemoveByKey("session:1")         // key deleted or persisted
//
// MapHeap is not thread-safe, callers synchronise access.
package util

import (
	"container/heap"
	"fmt"
)

// Item is an entry of a MapHeap
type Item[K comparable] struct {
	Key      K
	Priority int64
	index    int // position in the heap, maintained by container/heap
}

func (i *Item[K]) String() string {
	return fmt.Sprintf("{Key: %v, Priority: %d}", i.Key, i.Priority)
}

// MapHeap is a min-heap ordered by priority with O(1) access by key.
type MapHeap[K comparable] struct {
	items []*Item[K]
	byKey map[K]*Item[K]
}

// NewMapHeap creates an empty heap
func NewMapHeap[K comparable]() *MapHeap[K] {
	return &MapHeap[K]{
		items: make([]*Item[K], 0),
		byKey: make(map[K]*Item[K]),
	}
}

// --------------------------------------------------------------------------
// heap.Interface
// --------------------------------------------------------------------------

func (h *MapHeap[K]) Len() int { return len(h.items) }

func (h *MapHeap[K]) Less(i, j int) bool {
	return h.items[i].Priority < h.items[j].Priority
}

func (h *MapHeap[K]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *MapHeap[K]) Push(x any) {
	it := x.(*Item[K])
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.byKey[it.Key] = it
}

func (h *MapHeap[K]) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items[n-1] = nil
	it.index = -1
	h.items = h.items[:n-1]
	delete(h.byKey, it.Key)
	return it
}

// --------------------------------------------------------------------------
// Keyed access
// --------------------------------------------------------------------------

// AddItem inserts key with the given priority or moves an existing key to the new priority.
func (h *MapHeap[K]) AddItem(key K, priority int64) {
	if it, ok := h.byKey[key]; ok {
		it.Priority = priority
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &Item[K]{Key: key, Priority: priority})
}

// RemoveByKey removes key and returns its priority.
func (h *MapHeap[K]) RemoveByKey(key K) (int64, bool) {
	it, ok := h.byKey[key]
	if !ok {
		return 0, false
	}
	heap.Remove(h, it.index)
	return it.Priority, true
}

// Peek returns the item with the smallest priority without removing it.
func (h *MapHeap[K]) Peek() (*Item[K], bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return h.items[0], true
}

// PopMin removes and returns the item with the smallest priority.
func (h *MapHeap[K]) PopMin() (*Item[K], bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return heap.Pop(h).(*Item[K]), true
}

// Contains reports whether key is scheduled.
func (h *MapHeap[K]) Contains(key K) bool {
	_, ok := h.byKey[key]
	return ok
}

// GetByKey returns the item for key without removing it.
func (h *MapHeap[K]) GetByKey(key K) (*Item[K], bool) {
	it, ok := h.byKey[key]
	return it, ok
}
