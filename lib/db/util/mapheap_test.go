package util

import (
	"sort"
	"testing"
)

func TestMapHeapAddAndPeek(t *testing.T) {
	mh := NewMapHeap[string]()

	if mh.Len() != 0 {
		t.Fatalf("new heap should be empty, got %d", mh.Len())
	}

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 50)

	if mh.Len() != 3 {
		t.Errorf("heap should have 3 items, has %d", mh.Len())
	}
	for _, k := range []string{"a", "b", "c"} {
		if !mh.Contains(k) {
			t.Errorf("heap should contain %q", k)
		}
	}

	item, ok := mh.Peek()
	if !ok {
		t.Fatal("Peek() should return an item")
	}
	if item.Key != "c" || item.Priority != 50 {
		t.Errorf("expected min item (c,50), got %s", item)
	}
}

func TestMapHeapReschedule(t *testing.T) {
	mh := NewMapHeap[string]()
	mh.AddItem("a", 100)
	mh.AddItem("b", 200)

	// moving a behind b
	mh.AddItem("a", 300)

	if mh.Len() != 2 {
		t.Errorf("reschedule must not add an item, len is %d", mh.Len())
	}
	item, _ := mh.Peek()
	if item.Key != "b" {
		t.Errorf("expected b to be first after reschedule, got %s", item)
	}

	// and back to the front
	mh.AddItem("a", 1)
	item, _ = mh.Peek()
	if item.Key != "a" || item.Priority != 1 {
		t.Errorf("expected (a,1) first, got %s", item)
	}
}

func TestMapHeapRemoveByKey(t *testing.T) {
	mh := NewMapHeap[string]()
	mh.AddItem("a", 10)
	mh.AddItem("b", 20)
	mh.AddItem("c", 30)

	prio, ok := mh.RemoveByKey("b")
	if !ok || prio != 20 {
		t.Errorf("RemoveByKey(b) = (%d, %v), want (20, true)", prio, ok)
	}
	if mh.Contains("b") {
		t.Error("b should be gone")
	}
	if _, ok := mh.RemoveByKey("missing"); ok {
		t.Error("removing a missing key should report false")
	}

	// heap order must survive the removal
	first, _ := mh.PopMin()
	second, _ := mh.PopMin()
	if first.Key != "a" || second.Key != "c" {
		t.Errorf("unexpected pop order %s, %s", first, second)
	}
}

func TestMapHeapPopOrder(t *testing.T) {
	mh := NewMapHeap[int]()
	priorities := []int64{42, 7, 19, 3, 88, 3, 61, 0, -5}
	for i, p := range priorities {
		mh.AddItem(i, p)
	}

	want := append([]int64(nil), priorities...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	for i, w := range want {
		item, ok := mh.PopMin()
		if !ok {
			t.Fatalf("pop %d: heap empty too early", i)
		}
		if item.Priority != w {
			t.Errorf("pop %d: priority %d, want %d", i, item.Priority, w)
		}
		if mh.Contains(item.Key) {
			t.Errorf("pop %d: key %d still indexed", i, item.Key)
		}
	}

	if _, ok := mh.PopMin(); ok {
		t.Error("PopMin on empty heap should fail")
	}
	if _, ok := mh.Peek(); ok {
		t.Error("Peek on empty heap should fail")
	}
}

func TestMapHeapGetByKey(t *testing.T) {
	mh := NewMapHeap[string]()
	mh.AddItem("k", 5)

	item, ok := mh.GetByKey("k")
	if !ok || item.Priority != 5 {
		t.Errorf("GetByKey(k) = (%v, %v)", item, ok)
	}
	if mh.Len() != 1 {
		t.Error("GetByKey must not remove the item")
	}
	if _, ok := mh.GetByKey("x"); ok {
		t.Error("GetByKey(x) should fail")
	}
}
