package util

import (
	"sync"
	"testing"
	"time"
)

func TestMPSCQueueBasic(t *testing.T) {
	q := NewMPSCQueue[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d rejected", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case v := <-q.Recv():
			if v != i {
				t.Errorf("expected %d, got %d", i, v)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for item %d", i)
		}
	}
}

func TestMPSCQueueConcurrentProducers(t *testing.T) {
	const (
		producers = 8
		perProd   = 1000
	)

	q := NewMPSCQueue[[2]int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				q.Push([2]int{p, i})
			}
		}(p)
	}

	go func() {
		wg.Wait()
		q.Close()
	}()

	// per producer order must be kept
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	count := 0
	for v := range q.Recv() {
		p, i := v[0], v[1]
		if i != last[p]+1 {
			t.Fatalf("producer %d: got %d after %d", p, i, last[p])
		}
		last[p] = i
		count++
	}

	if count != producers*perProd {
		t.Errorf("received %d items, want %d", count, producers*perProd)
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty, Len() = %d", q.Len())
	}
}

func TestMPSCQueueClose(t *testing.T) {
	q := NewMPSCQueue[string]()
	q.Push("a")
	q.Push("b")
	q.Close()

	if !q.IsClosed() {
		t.Error("IsClosed should report true")
	}
	if q.Push("c") {
		t.Error("push after close should be rejected")
	}

	var got []string
	for v := range q.Recv() {
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("pending items must be delivered after close, got %v", got)
	}
}

func BenchmarkMPSCQueue(b *testing.B) {
	q := NewMPSCQueue[int]()
	done := make(chan struct{})
	go func() {
		for range q.Recv() {
		}
		close(done)
	}()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(i)
			i++
		}
	})
	q.Close()
	<-done
}
