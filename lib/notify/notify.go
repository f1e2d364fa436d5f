package notify

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/sKV/lib/db/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("notify")

// --------------------------------------------------------------------------
// Event Taxonomy
// --------------------------------------------------------------------------

// Class names the kind of modification a keyspace event reports
type Class string

const (
	ClassSet         Class = "set"         // SET family, MSET, GETSET, SETNX
	ClassExpire      Class = "expire"      // an expiry was attached to the key
	ClassSetRange    Class = "setrange"    // SETRANGE
	ClassIncrBy      Class = "incrby"      // INCR, DECR, INCRBY, DECRBY
	ClassIncrByFloat Class = "incrbyfloat" // INCRBYFLOAT
	ClassAppend      Class = "append"      // APPEND
	ClassDel         Class = "del"         // DEL
	ClassGroupSet    Class = "gset"        // key written by a group write
	ClassGroupDel    Class = "gdel"        // key purged by a group removal
)

// Classes lists every event class
var Classes = []Class{
	ClassSet, ClassExpire, ClassSetRange, ClassIncrBy, ClassIncrByFloat,
	ClassAppend, ClassDel, ClassGroupSet, ClassGroupDel,
}

// Event is a single keyspace modification
type Event struct {
	Class Class  `json:"class"`
	Key   string `json:"key"`
	DB    uint64 `json:"db"`
}

func (e Event) String() string {
	return fmt.Sprintf("Event{Class: %s, Key: %q, DB: %d}", e.Class, e.Key, e.DB)
}

// Sink receives keyspace events.
// Notify is called while the emitting command still holds its database lock, implementations
// must not block.
type Sink interface {
	Notify(e Event)
}

// Nop discards all events
var Nop Sink = nopSink{}

type nopSink struct{}

func (nopSink) Notify(Event) {}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(e Event)

func (f SinkFunc) Notify(e Event) { f(e) }

// --------------------------------------------------------------------------
// Dispatcher
// --------------------------------------------------------------------------

// Dispatcher is a Sink that delivers events asynchronously to any number of subscribers.
//
// Notify only pushes the event on a lock-free queue. A single goroutine takes events off the
// queue, counts them per class and calls every subscriber.
// Events emitted by one goroutine are delivered in emission order.
type Dispatcher struct {
	queue   *util.MPSCQueue[Event]
	subs    *xsync.MapOf[uint64, func(Event)]
	nextID  atomic.Uint64
	done    chan struct{}
	dropped atomic.Uint64
}

// NewDispatcher creates a dispatcher and starts its delivery goroutine
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		queue: util.NewMPSCQueue[Event](),
		subs:  xsync.NewMapOf[uint64, func(Event)](),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify queues an event for delivery.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (d *Dispatcher) Notify(e Event) {
	if !d.queue.Push(e) {
		d.dropped.Add(1)
	}
}

// Subscribe registers fn for all future events and returns a function that removes it again.
// fn runs on the delivery goroutine and should return quickly.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (d *Dispatcher) Subscribe(fn func(Event)) (cancel func()) {
	id := d.nextID.Add(1)
	d.subs.Store(id, fn)
	return func() {
		d.subs.Delete(id)
	}
}

// Pending returns the number of queued events that have not been delivered yet
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Dropped returns the number of events rejected after Close
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting events and waits until all queued events were delivered
func (d *Dispatcher) Close() {
	d.queue.Close()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue.Recv() {
		metrics.GetOrCreateCounter(fmt.Sprintf(`skv_keyspace_events_total{class=%q}`, e.Class)).Inc()
		d.subs.Range(func(id uint64, fn func(Event)) bool {
			deliver(id, fn, e)
			return true
		})
	}
}

// deliver calls a subscriber, a panicking subscriber is logged and does not stop delivery
func deliver(id uint64, fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("subscriber %d panicked on %s: %v", id, e, r)
		}
	}()
	fn(e)
}

// Recorder is a Sink that keeps every event in memory, used in tests
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in the order they were recorded
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset drops all recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
