package notify

import (
	"runtime"
	"sync"
	"testing"
)

func TestDispatcherDelivers(t *testing.T) {
	d := NewDispatcher()

	var (
		mu  sync.Mutex
		got []Event
	)
	cancel := d.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	defer cancel()

	want := []Event{
		{Class: ClassSet, Key: "a", DB: 1},
		{Class: ClassExpire, Key: "a", DB: 1},
		{Class: ClassIncrBy, Key: "n", DB: 2},
	}
	for _, e := range want {
		d.Notify(e)
	}
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}

	d.Notify(Event{Class: ClassDel, Key: "late"})
	if d.Dropped() != 1 {
		t.Errorf("events after Close should be dropped, Dropped() = %d", d.Dropped())
	}
}

func TestDispatcherUnsubscribeAndPanics(t *testing.T) {
	d := NewDispatcher()

	count := 0
	var mu sync.Mutex
	d.Subscribe(func(Event) { panic("boom") })
	cancel := d.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	d.Notify(Event{Class: ClassSet, Key: "a"})

	// wait for the first event before unsubscribing
	for {
		mu.Lock()
		c := count
		mu.Unlock()
		if c == 1 {
			break
		}
		runtime.Gosched()
	}
	cancel()
	d.Notify(Event{Class: ClassSet, Key: "b"})
	d.Close()

	if count != 1 {
		t.Errorf("cancelled subscriber received %d events, want 1", count)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Notify(Event{Class: ClassAppend, Key: "x"})
	r.Notify(Event{Class: ClassSetRange, Key: "y"})

	events := r.Events()
	if len(events) != 2 || events[0].Key != "x" || events[1].Class != ClassSetRange {
		t.Errorf("unexpected events %v", events)
	}

	r.Reset()
	if len(r.Events()) != 0 {
		t.Errorf("Reset should drop events")
	}

	Nop.Notify(Event{}) // must not panic
}
