// Package util
//
// This file provides a lock-free multi-producer single-consumer queue.
//
//   - Push never blocks and can be called from any number of goroutines.
//   - Items are delivered on the channel returned by Recv to exactly one consumer.
//   - The queue is unbounded, a slow consumer never stalls a producer.
//   - Items pushed by one goroutine are delivered in push order, there is no global
//     order between concurrent producers.
package util

import (
	"runtime"
	"sync/atomic"
)

// mpscNode is a single linked list element
type mpscNode[T any] struct {
	value T
	next  atomic.Pointer[mpscNode[T]]
}

// MPSCQueue is an unbounded lock-free queue with a single consuming goroutine.
type MPSCQueue[T any] struct {
	head   *mpscNode[T] // only touched by the pump goroutine
	tail   atomic.Pointer[mpscNode[T]]
	wake   chan struct{}
	out    chan T
	closed atomic.Bool
	size   atomic.Int64
}

// NewMPSCQueue creates a queue and starts the goroutine that moves items to Recv.
func NewMPSCQueue[T any]() *MPSCQueue[T] {
	sentinel := &mpscNode[T]{}
	q := &MPSCQueue[T]{
		head: sentinel,
		wake: make(chan struct{}, 1),
		out:  make(chan T),
	}
	q.tail.Store(sentinel)
	go q.pump()
	return q
}

// Push appends value to the queue. It returns false if the queue has been closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *MPSCQueue[T]) Push(value T) bool {
	if q.closed.Load() {
		return false
	}

	n := &mpscNode[T]{value: value}
	spins := 0
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next != nil {
			// another producer linked a node but did not move the tail yet
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			break
		}

		// contention: spin a little, then yield
		if spins < 8 {
			spins++
			for i := 0; i < 1<<spins; i++ {
				runtime.Gosched()
			}
		} else {
			runtime.Gosched()
		}
	}

	q.size.Add(1)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// pump moves items from the linked list to the output channel until the queue is closed
// and drained.
func (q *MPSCQueue[T]) pump() {
	defer close(q.out)

	var zero T
	for {
		drained := true
		for next := q.head.next.Load(); next != nil; next = q.head.next.Load() {
			drained = false
			value := next.value
			next.value = zero
			q.head = next
			q.size.Add(-1)
			q.out <- value
		}

		if drained {
			if q.closed.Load() && q.head.next.Load() == nil {
				return
			}
			<-q.wake
		}
	}
}

// Recv returns the channel on which items are delivered. It is closed after Close once every
// pending item has been received.
func (q *MPSCQueue[T]) Recv() <-chan T {
	return q.out
}

// Close rejects further pushes. Items already queued are still delivered.
func (q *MPSCQueue[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
}

// IsClosed reports whether Close has been called.
func (q *MPSCQueue[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of items pushed but not yet received.
func (q *MPSCQueue[T]) Len() int {
	return int(q.size.Load())
}
