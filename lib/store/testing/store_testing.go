package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/command"
	"github.com/ValentinKolb/sKV/lib/group"
	"github.com/ValentinKolb/sKV/lib/store"
)

// StoreFactory creates a new, empty store
type StoreFactory func() store.IStore

// RunStoreTests runs the conformance suite against a store implementation
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetGet", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Conditions", func(t *testing.T) {
			testConditions(t, factory())
		})

		t.Run("Expiry", func(t *testing.T) {
			testExpiry(t, factory())
		})

		t.Run("Ranges", func(t *testing.T) {
			testRanges(t, factory())
		})

		t.Run("MultiKey", func(t *testing.T) {
			testMultiKey(t, factory())
		})

		t.Run("Counters", func(t *testing.T) {
			testCounters(t, factory())
		})

		t.Run("Errors", func(t *testing.T) {
			testErrors(t, factory())
		})

		t.Run("Groups", func(t *testing.T) {
			testGroups(t, factory())
		})

		t.Run("RawExec", func(t *testing.T) {
			testRawExec(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func expectValue(t testing.TB, s store.IStore, key, want string) {
	t.Helper()
	v, found, err := s.Get(key)
	must(t, err)
	if !found || string(v) != want {
		t.Fatalf("Get(%q) = %q (found=%v), want %q", key, v, found, want)
	}
}

func expectAbsent(t testing.TB, s store.IStore, key string) {
	t.Helper()
	v, found, err := s.Get(key)
	must(t, err)
	if found {
		t.Fatalf("Get(%q) = %q, want absent", key, v)
	}
}

func expectCode(t testing.TB, err error, code store.RetCode, sentinel *command.Error) {
	t.Helper()
	var se *store.Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *store.Error, got %T (%v)", err, err)
	}
	if se.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, se.Code, se.Msg)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("errors.Is(%v, %s) = false", err, sentinel.Kind)
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	ok, err := s.Set("k", []byte("v"), store.SetOptions{})
	must(t, err)
	if !ok {
		t.Fatalf("unconditional Set reported no write")
	}
	expectValue(t, s, "k", "v")
	expectAbsent(t, s, "missing")

	old, found, err := s.GetSet("k", []byte("w"))
	must(t, err)
	if !found || string(old) != "v" {
		t.Errorf("GetSet returned %q (found=%v)", old, found)
	}
	expectValue(t, s, "k", "w")

	n, err := s.Append("k", []byte("xyz"))
	must(t, err)
	if n != 4 {
		t.Errorf("Append length = %d, want 4", n)
	}
	n, err = s.StrLen("k")
	must(t, err)
	if n != 4 {
		t.Errorf("StrLen = %d, want 4", n)
	}

	binary := []byte{0, 1, 2, '\r', '\n', 255}
	_, err = s.Set("bin", binary, store.SetOptions{})
	must(t, err)
	v, _, err := s.Get("bin")
	must(t, err)
	if !bytes.Equal(v, binary) {
		t.Errorf("binary value changed: %v", v)
	}

	deleted, err := s.Delete("k", "bin", "missing")
	must(t, err)
	if deleted != 2 {
		t.Errorf("Delete = %d, want 2", deleted)
	}
	count, err := s.Exists("k", "bin")
	must(t, err)
	if count != 0 {
		t.Errorf("Exists after Delete = %d", count)
	}
}

func testConditions(t *testing.T, s store.IStore) {
	ok, err := s.Set("k", []byte("a"), store.SetOptions{XX: true})
	must(t, err)
	if ok {
		t.Errorf("XX on an absent key must not write")
	}
	ok, err = s.Set("k", []byte("a"), store.SetOptions{NX: true})
	must(t, err)
	if !ok {
		t.Errorf("NX on an absent key must write")
	}
	ok, err = s.Set("k", []byte("b"), store.SetOptions{NX: true})
	must(t, err)
	if ok {
		t.Errorf("NX on an existing key must not write")
	}
	expectValue(t, s, "k", "a")
}

func testExpiry(t *testing.T, s store.IStore) {
	_, err := s.Set("short", []byte("v"), store.SetOptions{TTL: 50 * time.Millisecond})
	must(t, err)
	_, err = s.Set("long", []byte("v"), store.SetOptions{TTL: time.Hour})
	must(t, err)
	expectValue(t, s, "short", "v")

	time.Sleep(120 * time.Millisecond)
	expectAbsent(t, s, "short")
	expectValue(t, s, "long", "v")

	_, err = s.Set("long", []byte("w"), store.SetOptions{KeepTTL: true})
	must(t, err)
	expectValue(t, s, "long", "w")
}

func testRanges(t *testing.T, s store.IStore) {
	n, err := s.SetRange("r", 0, []byte("Hello World"))
	must(t, err)
	if n != 11 {
		t.Errorf("SetRange length = %d", n)
	}
	for _, tc := range []struct {
		start, end int64
		want       string
	}{
		{0, 4, "Hello"},
		{-100, -1, "Hello World"},
		{-1, -5, ""},
	} {
		v, err := s.GetRange("r", tc.start, tc.end)
		must(t, err)
		if string(v) != tc.want {
			t.Errorf("GetRange(%d, %d) = %q, want %q", tc.start, tc.end, v, tc.want)
		}
	}
}

func testMultiKey(t *testing.T, s store.IStore) {
	must(t, s.MSet([]string{"a", "b"}, [][]byte{[]byte("1"), []byte("2")}))
	values, err := s.MGet("a", "missing", "b")
	must(t, err)
	if len(values) != 3 || string(values[0]) != "1" || values[1] != nil || string(values[2]) != "2" {
		t.Errorf("MGet = %q", values)
	}

	ok, err := s.MSetNX([]string{"a", "c"}, [][]byte{[]byte("x"), []byte("y")})
	must(t, err)
	if ok {
		t.Errorf("MSetNX with an existing key must not write")
	}
	expectAbsent(t, s, "c")

	ok, err = s.MSetNX([]string{"c", "d"}, [][]byte{[]byte("x"), []byte("y")})
	must(t, err)
	if !ok {
		t.Errorf("MSetNX with fresh keys must write")
	}
	expectValue(t, s, "d", "y")
}

func testCounters(t *testing.T, s store.IStore) {
	n, err := s.IncrBy("n", 5)
	must(t, err)
	if n != 5 {
		t.Errorf("IncrBy = %d", n)
	}
	n, err = s.IncrBy("n", -7)
	must(t, err)
	if n != -2 {
		t.Errorf("IncrBy = %d", n)
	}

	f, err := s.IncrByFloat("f", 2.5)
	must(t, err)
	if f != 2.5 {
		t.Errorf("IncrByFloat = %v", f)
	}
	expectValue(t, s, "f", "2.5")
}

func testErrors(t *testing.T, s store.IStore) {
	_, err := s.Set("max", []byte("9223372036854775807"), store.SetOptions{})
	must(t, err)
	_, err = s.IncrBy("max", 1)
	expectCode(t, err, store.RetCOverflow, command.ErrOverflow)
	expectValue(t, s, "max", "9223372036854775807")

	_, err = s.Set("s", []byte("abc"), store.SetOptions{})
	must(t, err)
	_, err = s.IncrBy("s", 1)
	expectCode(t, err, store.RetCNotInteger, command.ErrNotInteger)

	_, err = s.IncrByFloat("s", 1)
	expectCode(t, err, store.RetCNotFloat, command.ErrNotFloat)

	_, err = s.SetRange("s", -1, []byte("x"))
	expectCode(t, err, store.RetCOffsetRange, command.ErrOffsetRange)

	_, err = s.Set("k", []byte("v"), store.SetOptions{NX: true, XX: true})
	expectCode(t, err, store.RetCSyntax, command.ErrSyntax)

	_, err = s.GroupDelete("not-a-group")
	expectCode(t, err, store.RetCInvalidGroup, command.ErrInvalidGroup)

	err = s.MSet([]string{"a"}, nil)
	expectCode(t, err, store.RetCArity, command.ErrArity)
}

func testGroups(t *testing.T, s store.IStore) {
	must(t, s.GroupSet([]string{"a", "b"}, [][]byte{[]byte("1"), []byte("2")}))
	must(t, s.GroupSet([]string{"b", "c"}, [][]byte{[]byte("3"), []byte("4")}))

	count, err := s.GroupRefCount("b")
	must(t, err)
	if count != 2 {
		t.Fatalf("refcount of b = %d, want 2", count)
	}

	values, err := s.GroupGet("a", "b", "x")
	must(t, err)
	if string(values[0]) != "1" || string(values[1]) != "3" || values[2] != nil {
		t.Errorf("GroupGet = %q", values)
	}

	g := group.DeriveID([]string{"a", "b"})
	before, found, err := s.GroupRecency(g)
	must(t, err)
	if !found {
		t.Fatalf("group %q not registered", g)
	}
	_, err = s.GroupGet("a", "b")
	must(t, err)
	after, _, err := s.GroupRecency(g)
	must(t, err)
	if after <= before {
		t.Errorf("recency did not advance: %d -> %d", before, after)
	}

	ids, err := s.GroupOldest(1)
	must(t, err)
	if len(ids) != 1 || ids[0] != group.DeriveID([]string{"b", "c"}) {
		t.Errorf("GroupOldest = %q", ids)
	}

	ok, err := s.GroupDelete(g)
	must(t, err)
	if !ok {
		t.Errorf("GroupDelete of a registered group = false")
	}
	ok, err = s.GroupDelete(g)
	must(t, err)
	if ok {
		t.Errorf("GroupDelete of a removed group = true")
	}
	count, err = s.GroupRefCount("b")
	must(t, err)
	if count != 1 {
		t.Errorf("refcount of b after removal = %d, want 1", count)
	}
	values, err = s.GroupGet("a")
	must(t, err)
	if values[0] != nil {
		t.Errorf("a should be purged, got %q", values[0])
	}
}

func testRawExec(t *testing.T, s store.IStore) {
	reply, err := s.Exec(store.Args("SET", "raw", "v"))
	must(t, err)
	if reply.Kind != command.ReplyStatus {
		t.Errorf("SET reply = %s", reply)
	}
	reply, err = s.Exec(store.Args("NOSUCHCOMMAND"))
	must(t, err)
	if !errors.Is(reply.AsError(), command.ErrUnknownCommand) {
		t.Errorf("unknown command reply = %s", reply)
	}

	info, err := s.Info()
	must(t, err)
	if info.Keyspace.Keys < 1 {
		t.Errorf("Info reports %d keys", info.Keyspace.Keys)
	}
}

func testConcurrent(t *testing.T, s store.IStore) {
	const workers, perWorker = 4, 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.IncrBy("counter", 1); err != nil {
					errs <- err
					return
				}
				if _, err := s.Set(fmt.Sprintf("w%d-%d", w, i), []byte("x"), store.SetOptions{}); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent write failed: %v", err)
	}
	expectValue(t, s, "counter", fmt.Sprint(workers*perWorker))
}
