package command

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/notify"
	"github.com/ValentinKolb/sKV/lib/value"
)

func TestSet(t *testing.T) {
	t.Run("Basic", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectOK(t, d.Do(testNow, "SET", "k", "v").Reply)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "v")
		expectNull(t, d.Do(testNow, "GET", "missing").Reply)
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectOK(t, d.Do(testNow, "sEt", "k", "v", "nx").Reply)
		expectBulk(t, d.Do(testNow, "get", "k").Reply, "v")
	})

	t.Run("NXAndXX", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectNull(t, d.Do(testNow, "SET", "k", "v", "XX").Reply)
		expectNull(t, d.Do(testNow, "GET", "k").Reply)
		expectOK(t, d.Do(testNow, "SET", "k", "v1", "NX").Reply)
		expectNull(t, d.Do(testNow, "SET", "k", "v2", "NX").Reply)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "v1")
		expectOK(t, d.Do(testNow, "SET", "k", "v3", "XX").Reply)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "v3")
	})

	t.Run("AbortPropagatesNothing", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "k", "v")
		if res := d.Do(testNow, "SET", "k", "w", "NX"); res.Propagate != nil {
			t.Errorf("aborted SET propagated %q", argvString(res.Propagate))
		}
	})

	t.Run("SyntaxErrors", func(t *testing.T) {
		d, _ := newTestDB(t)
		for _, args := range [][]string{
			{"SET", "k", "v", "NX", "XX"},
			{"SET", "k", "v", "EX", "10", "PX", "100"},
			{"SET", "k", "v", "EX"},
			{"SET", "k", "v", "EX", "10", "KEEPTTL"},
			{"SET", "k", "v", "KEEPTTL", "PXAT", "10"},
			{"SET", "k", "v", "BOGUS"},
		} {
			expectErr(t, d.Do(testNow, args...).Reply, ErrSyntax)
		}
		if d.Do(testNow, "EXISTS", "k").Reply.Int != 0 {
			t.Errorf("failed SET must not create the key")
		}
	})

	t.Run("InvalidExpire", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectErrMsg(t, d.Do(testNow, "SET", "k", "v", "EX", "0").Reply, ErrInvalidExpire, "invalid expire time in set")
		expectErrMsg(t, d.Do(testNow, "SET", "k", "v", "PX", "-5").Reply, ErrInvalidExpire, "invalid expire time in set")
		expectErr(t, d.Do(testNow, "SET", "k", "v", "EX", "9223372036854775807").Reply, ErrInvalidExpire)
		expectErr(t, d.Do(testNow, "SET", "k", "v", "EX", "ten").Reply, ErrNotInteger)
		expectErrMsg(t, d.Do(testNow, "SETEX", "k", "0", "v").Reply, ErrInvalidExpire, "invalid expire time in setex")
		expectErrMsg(t, d.Do(testNow, "PSETEX", "k", "-1", "v").Reply, ErrInvalidExpire, "invalid expire time in psetex")
	})

	t.Run("Expiry", func(t *testing.T) {
		d, rec := newTestDB(t)
		res := d.Do(testNow, "SET", "k", "v", "PX", "100")
		expectOK(t, res.Reply)

		want := "SET k v PXAT 1700000000100"
		if got := argvString(res.Propagate); got != want {
			t.Errorf("propagated %q, want %q", got, want)
		}

		events := rec.Events()
		if len(events) != 2 || events[0].Class != notify.ClassSet || events[1].Class != notify.ClassExpire {
			t.Errorf("unexpected events %v", events)
		}
		if events[0].DB != 3 || events[0].Key != "k" {
			t.Errorf("event must carry key and database, got %v", events[0])
		}

		expectBulk(t, d.Do(testNow+99, "GET", "k").Reply, "v")
		expectNull(t, d.Do(testNow+100, "GET", "k").Reply)
	})

	t.Run("ExpireAtInThePast", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "k", "v")
		res := d.Do(testNow, "SET", "k", "w", "PXAT", "1000")
		expectOK(t, res.Reply)
		if got := argvString(res.Propagate); got != "DEL k" {
			t.Errorf("propagated %q, want DEL k", got)
		}
		expectNull(t, d.Do(testNow, "GET", "k").Reply)
	})

	t.Run("KeepTTL", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "k", "v", "EX", "10")
		expectOK(t, d.Do(testNow, "SET", "k", "w", "KEEPTTL").Reply)
		if at, _ := d.keys.ExpireAt("k", testNow); at != testNow+10_000 {
			t.Errorf("KEEPTTL lost the expiry, got %d", at)
		}
		expectOK(t, d.Do(testNow, "SET", "k", "x").Reply)
		if at, _ := d.keys.ExpireAt("k", testNow); at != 0 {
			t.Errorf("plain SET must clear the expiry, got %d", at)
		}
	})

	t.Run("SETNX", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectInt(t, d.Do(testNow, "SETNX", "k", "a").Reply, 1)
		expectInt(t, d.Do(testNow, "SETNX", "k", "b").Reply, 0)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "a")
	})

	t.Run("SETEXAndPSETEX", func(t *testing.T) {
		d, _ := newTestDB(t)
		res := d.Do(testNow, "SETEX", "a", "2", "v")
		expectOK(t, res.Reply)
		if got := argvString(res.Propagate); got != "SET a v PXAT 1700000002000" {
			t.Errorf("propagated %q", got)
		}
		expectOK(t, d.Do(testNow, "PSETEX", "b", "5", "v").Reply)
		expectBulk(t, d.Do(testNow+4, "GET", "b").Reply, "v")
		expectNull(t, d.Do(testNow+5, "GET", "b").Reply)
		expectNull(t, d.Do(testNow+2000, "GET", "a").Reply)
	})
}

func TestWrongType(t *testing.T) {
	d, _ := newTestDB(t)
	d.keys.SetKey("list", db.Object{Type: db.TypeList, Val: value.NewRaw([]byte("x"))}, testNow)

	for _, args := range [][]string{
		{"GET", "list"},
		{"GETSET", "list", "v"},
		{"SETRANGE", "list", "0", "v"},
		{"GETRANGE", "list", "0", "1"},
		{"INCR", "list"},
		{"INCRBYFLOAT", "list", "1"},
		{"APPEND", "list", "v"},
		{"STRLEN", "list"},
	} {
		expectErr(t, d.Do(testNow, args...).Reply, ErrWrongType)
	}

	// MGET reports non-string keys as null
	r := d.Do(testNow, "MGET", "list").Reply
	if r.Kind != ReplyArray || len(r.Array) != 1 || r.Array[0].Kind != ReplyNull {
		t.Errorf("MGET on a list = %s", r)
	}

	// SET replaces any type
	expectOK(t, d.Do(testNow, "SET", "list", "v").Reply)
	expectBulk(t, d.Do(testNow, "GET", "list").Reply, "v")
}

func TestGetSet(t *testing.T) {
	d, rec := newTestDB(t)
	expectNull(t, d.Do(testNow, "GETSET", "k", "a").Reply)
	d.Do(testNow, "SET", "k", "a", "PX", "50")
	expectBulk(t, d.Do(testNow, "GETSET", "k", "b").Reply, "a")
	if at, _ := d.keys.ExpireAt("k", testNow); at != 0 {
		t.Errorf("GETSET must clear the expiry, got %d", at)
	}
	expectBulk(t, d.Do(testNow+100, "GET", "k").Reply, "b")

	last := rec.Events()[len(rec.Events())-1]
	if last.Class != notify.ClassSet {
		t.Errorf("GETSET emitted %s", last.Class)
	}
}

func TestSetRange(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		d, _ := newTestDB(t)
		for _, s := range []string{"a", "hello", strings.Repeat("xyz", 100)} {
			d.Do(testNow, "DEL", "k")
			expectInt(t, d.Do(testNow, "SETRANGE", "k", "0", s).Reply, int64(len(s)))
			expectBulk(t, d.Do(testNow, "GETRANGE", "k", "0", itoa(len(s)-1)).Reply, s)
		}
	})

	t.Run("AbsentKeyPadsWithZeros", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectInt(t, d.Do(testNow, "SETRANGE", "k", "3", "ab").Reply, 5)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "\x00\x00\x00ab")
	})

	t.Run("AbsentKeyEmptyFragment", func(t *testing.T) {
		d, _ := newTestDB(t)
		res := d.Do(testNow, "SETRANGE", "k", "10", "")
		expectInt(t, res.Reply, 0)
		if res.Propagate != nil {
			t.Errorf("no-op SETRANGE propagated")
		}
		expectInt(t, d.Do(testNow, "EXISTS", "k").Reply, 0)
	})

	t.Run("ExistingKey", func(t *testing.T) {
		d, rec := newTestDB(t)
		d.Do(testNow, "SET", "k", "Hello World")
		expectInt(t, d.Do(testNow, "SETRANGE", "k", "6", "Redis").Reply, 11)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "Hello Redis")
		expectInt(t, d.Do(testNow, "SETRANGE", "k", "6", "").Reply, 11)
		expectInt(t, d.Do(testNow, "SETRANGE", "k", "13", "!").Reply, 14)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "Hello Redis\x00\x00!")

		last := rec.Events()[len(rec.Events())-1]
		if last.Class != notify.ClassSetRange {
			t.Errorf("SETRANGE emitted %s", last.Class)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "k", "abc")
		expectErrMsg(t, d.Do(testNow, "SETRANGE", "k", "-1", "x").Reply, ErrOffsetRange, "offset is out of range")
		expectErr(t, d.Do(testNow, "SETRANGE", "k", "x", "x").Reply, ErrNotInteger)
		expectErr(t, d.Do(testNow, "SETRANGE", "k", itoa(value.MaxLen), "x").Reply, ErrSizeLimit)
		expectErr(t, d.Do(testNow, "SETRANGE", "new", itoa(value.MaxLen-1), "xy").Reply, ErrSizeLimit)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "abc")
		expectInt(t, d.Do(testNow, "EXISTS", "new").Reply, 0)
	})

	t.Run("OffsetNearMaxInt64", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "k", "abc")
		maxOffset := string(itob(math.MaxInt64))
		expectErr(t, d.Do(testNow, "SETRANGE", "k", maxOffset, "x").Reply, ErrSizeLimit)
		expectErr(t, d.Do(testNow, "SETRANGE", "new", maxOffset, "x").Reply, ErrSizeLimit)
		expectErr(t, d.Do(testNow, "SETRANGE", "new", string(itob(math.MaxInt64-1)), "xy").Reply, ErrSizeLimit)
		expectBulk(t, d.Do(testNow, "GET", "k").Reply, "abc")
		expectInt(t, d.Do(testNow, "EXISTS", "new").Reply, 0)
	})

	t.Run("SharedValueIsUnshared", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "a", "12")
		d.Do(testNow, "SET", "b", "12")
		expectInt(t, d.Do(testNow, "SETRANGE", "a", "0", "9").Reply, 2)
		expectBulk(t, d.Do(testNow, "GET", "a").Reply, "92")
		expectBulk(t, d.Do(testNow, "GET", "b").Reply, "12")
	})
}

func TestGetRange(t *testing.T) {
	d, _ := newTestDB(t)
	d.Do(testNow, "SET", "k", "Hello World")

	cases := []struct {
		start, end string
		want       string
	}{
		{"0", "4", "Hello"},
		{"-100", "-1", "Hello World"},
		{"-1", "-5", ""},
		{"-5", "-1", "World"},
		{"6", "100", "World"},
		{"5", "3", ""},
		{"0", "-100", "H"},
		{"20", "30", ""},
	}
	for _, tc := range cases {
		t.Run(tc.start+"_"+tc.end, func(t *testing.T) {
			expectBulk(t, d.Do(testNow, "GETRANGE", "k", tc.start, tc.end).Reply, tc.want)
		})
	}

	t.Run("AbsentKey", func(t *testing.T) {
		expectBulk(t, d.Do(testNow, "GETRANGE", "missing", "0", "-1").Reply, "")
	})

	t.Run("IntegerEncoded", func(t *testing.T) {
		d.Do(testNow, "SET", "n", "12344")
		d.Do(testNow, "INCR", "n")
		expectBulk(t, d.Do(testNow, "GETRANGE", "n", "1", "3").Reply, "234")
	})

	t.Run("BadIndex", func(t *testing.T) {
		expectErr(t, d.Do(testNow, "GETRANGE", "k", "a", "1").Reply, ErrNotInteger)
	})
}

func TestMultiKey(t *testing.T) {
	t.Run("MSETAndMGET", func(t *testing.T) {
		d, rec := newTestDB(t)
		expectOK(t, d.Do(testNow, "MSET", "a", "1", "b", "2").Reply)
		r := d.Do(testNow, "MGET", "a", "missing", "b").Reply
		if r.Kind != ReplyArray || len(r.Array) != 3 {
			t.Fatalf("MGET = %s", r)
		}
		expectBulk(t, r.Array[0], "1")
		expectNull(t, r.Array[1])
		expectBulk(t, r.Array[2], "2")
		if n := len(rec.Events()); n != 2 {
			t.Errorf("MSET of two keys emitted %d events", n)
		}
	})

	t.Run("OddArguments", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectErrMsg(t, d.Do(testNow, "MSET", "a", "1", "b").Reply, ErrArity, "wrong number of arguments for MSET")
		expectErrMsg(t, d.Do(testNow, "MSETNX", "a", "1", "b").Reply, ErrArity, "wrong number of arguments for MSET")
		expectInt(t, d.Do(testNow, "EXISTS", "a", "b").Reply, 0)
	})

	t.Run("MSETNXAtomicity", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "a", "old")
		res := d.Do(testNow, "MSETNX", "a", "1", "b", "2")
		expectInt(t, res.Reply, 0)
		if res.Propagate != nil {
			t.Errorf("aborted MSETNX propagated")
		}
		expectBulk(t, d.Do(testNow, "GET", "a").Reply, "old")
		expectNull(t, d.Do(testNow, "GET", "b").Reply)

		d.Do(testNow, "DEL", "a")
		expectInt(t, d.Do(testNow, "MSETNX", "a", "1", "b", "2").Reply, 1)
		expectBulk(t, d.Do(testNow, "GET", "a").Reply, "1")
		expectBulk(t, d.Do(testNow, "GET", "b").Reply, "2")
	})

	t.Run("MSETClearsExpiry", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "a", "1", "PX", "10")
		d.Do(testNow, "MSET", "a", "2")
		expectBulk(t, d.Do(testNow+20, "GET", "a").Reply, "2")
	})
}

func TestCounters(t *testing.T) {
	t.Run("Basic", func(t *testing.T) {
		d, rec := newTestDB(t)
		expectInt(t, d.Do(testNow, "INCR", "n").Reply, 1)
		expectInt(t, d.Do(testNow, "INCRBY", "n", "41").Reply, 42)
		expectInt(t, d.Do(testNow, "DECR", "n").Reply, 41)
		expectInt(t, d.Do(testNow, "DECRBY", "n", "50").Reply, -9)
		expectBulk(t, d.Do(testNow, "GET", "n").Reply, "-9")
		for _, e := range rec.Events() {
			if e.Class != notify.ClassIncrBy {
				t.Errorf("counter emitted %s", e.Class)
			}
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "max", "9223372036854775807")
		expectErr(t, d.Do(testNow, "INCR", "max").Reply, ErrOverflow)
		expectBulk(t, d.Do(testNow, "GET", "max").Reply, "9223372036854775807")

		d.Do(testNow, "SET", "min", "-9223372036854775808")
		expectErr(t, d.Do(testNow, "DECR", "min").Reply, ErrOverflow)
		expectErrMsg(t, d.Do(testNow, "DECRBY", "x", "-9223372036854775808").Reply, ErrOverflow, "decrement would overflow")
		expectInt(t, d.Do(testNow, "EXISTS", "x").Reply, 0)
	})

	t.Run("NotAnInteger", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "s", "abc")
		expectErr(t, d.Do(testNow, "INCR", "s").Reply, ErrNotInteger)
		expectErr(t, d.Do(testNow, "INCRBY", "n", "1.5").Reply, ErrNotInteger)
		expectBulk(t, d.Do(testNow, "GET", "s").Reply, "abc")

		for _, stored := range []string{"+5", "007", "-0", " 1"} {
			d.Do(testNow, "SET", "loose", stored)
			expectErr(t, d.Do(testNow, "INCR", "loose").Reply, ErrNotInteger)
			expectBulk(t, d.Do(testNow, "GET", "loose").Reply, stored)
		}
		for _, incr := range []string{"+3", "03", "-0"} {
			expectErr(t, d.Do(testNow, "INCRBY", "j", incr).Reply, ErrNotInteger)
		}
		expectInt(t, d.Do(testNow, "EXISTS", "j").Reply, 0)
	})

	t.Run("KeepsExpiry", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "n", "5", "PX", "100")
		d.Do(testNow, "INCR", "n")
		if at, _ := d.keys.ExpireAt("n", testNow); at != testNow+100 {
			t.Errorf("INCR lost the expiry, got %d", at)
		}
	})

	t.Run("InPlaceUpdate", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "n", "20000")
		d.Do(testNow, "INCR", "n")
		first, _ := d.keys.Lookup("n", testNow)
		if first.Val.Encoding() != value.EncInt {
			t.Fatalf("INCR must store an integer encoding")
		}
		d.Do(testNow, "INCR", "n")
		second, _ := d.keys.Lookup("n", testNow)
		if first.Val != second.Val {
			t.Errorf("exclusive integer outside the pool should be updated in place")
		}
		expectBulk(t, d.Do(testNow, "GET", "n").Reply, "20002")
	})

	t.Run("SharedInstances", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "a", "7")
		d.Do(testNow, "SET", "b", "7")
		a, _ := d.keys.Lookup("a", testNow)
		b, _ := d.keys.Lookup("b", testNow)
		if a.Val != b.Val || !a.Val.IsShared() {
			t.Fatalf("small integers should alias the shared pool")
		}
		expectInt(t, d.Do(testNow, "INCR", "a").Reply, 8)
		expectBulk(t, d.Do(testNow, "GET", "b").Reply, "7")
		if v, _ := value.Shared(7); v.String() != "7" {
			t.Errorf("shared instance was mutated: %s", v)
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		d, _ := newTestDB(t)
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 250; i++ {
					d.Do(testNow, "INCR", "n")
				}
			}()
		}
		wg.Wait()
		expectBulk(t, d.Do(testNow, "GET", "n").Reply, "2000")
	})
}

func TestIncrByFloat(t *testing.T) {
	d, rec := newTestDB(t)

	d.Do(testNow, "SET", "f", "3", "PX", "1000")
	res := d.Do(testNow, "INCRBYFLOAT", "f", "1.5")
	expectBulk(t, res.Reply, "4.5")
	if got := argvString(res.Propagate); got != "SET f 4.5 KEEPTTL" {
		t.Errorf("propagated %q", got)
	}
	if at, _ := d.keys.ExpireAt("f", testNow); at != testNow+1000 {
		t.Errorf("INCRBYFLOAT lost the expiry, got %d", at)
	}
	if last := rec.Events()[len(rec.Events())-1]; last.Class != notify.ClassIncrByFloat {
		t.Errorf("INCRBYFLOAT emitted %s", last.Class)
	}

	expectBulk(t, d.Do(testNow, "INCRBYFLOAT", "new", "2.25").Reply, "2.25")
	expectBulk(t, d.Do(testNow, "INCRBYFLOAT", "new", "-2.25").Reply, "0")

	d.Do(testNow, "SET", "big", "1.7e308")
	expectErr(t, d.Do(testNow, "INCRBYFLOAT", "big", "1.7e308").Reply, ErrInvalidFloat)
	expectBulk(t, d.Do(testNow, "GET", "big").Reply, "1.7e308")

	d.Do(testNow, "SET", "p", "0.1")
	expectBulk(t, d.Do(testNow, "INCRBYFLOAT", "p", "0.2").Reply, "0.3")
	expectBulk(t, d.Do(testNow, "INCRBYFLOAT", "e", "5.0e3").Reply, "5000")
	expectBulk(t, d.Do(testNow, "INCRBYFLOAT", "e", "2.0e2").Reply, "5200")
	expectErr(t, d.Do(testNow, "INCRBYFLOAT", "e", "inf").Reply, ErrInvalidFloat)
	expectBulk(t, d.Do(testNow, "GET", "e").Reply, "5200")

	d.Do(testNow, "SET", "s", "abc")
	expectErr(t, d.Do(testNow, "INCRBYFLOAT", "s", "1").Reply, ErrNotFloat)
	expectErr(t, d.Do(testNow, "INCRBYFLOAT", "f", "x").Reply, ErrNotFloat)
}

func TestAppendAndStrlen(t *testing.T) {
	t.Run("CreatesKey", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectInt(t, d.Do(testNow, "APPEND", "new", "abc").Reply, 3)
		expectBulk(t, d.Do(testNow, "GET", "new").Reply, "abc")
		expectInt(t, d.Do(testNow, "APPEND", "new", "def").Reply, 6)
		expectBulk(t, d.Do(testNow, "GET", "new").Reply, "abcdef")
	})

	t.Run("SharedValueIsUnshared", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "SET", "a", "7")
		d.Do(testNow, "SET", "b", "7")
		expectInt(t, d.Do(testNow, "APPEND", "a", "x").Reply, 2)
		expectBulk(t, d.Do(testNow, "GET", "a").Reply, "7x")
		expectBulk(t, d.Do(testNow, "GET", "b").Reply, "7")
	})

	t.Run("Strlen", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectInt(t, d.Do(testNow, "STRLEN", "missing").Reply, 0)
		d.Do(testNow, "SET", "s", "hello")
		expectInt(t, d.Do(testNow, "STRLEN", "s").Reply, 5)
		d.Do(testNow, "SET", "n", "-123")
		expectInt(t, d.Do(testNow, "STRLEN", "n").Reply, 4)
	})
}

func TestDelExists(t *testing.T) {
	d, rec := newTestDB(t)
	d.Do(testNow, "MSET", "a", "1", "b", "2")
	expectInt(t, d.Do(testNow, "EXISTS", "a", "b", "c", "a").Reply, 3)

	rec.Reset()
	res := d.Do(testNow, "DEL", "a", "c")
	expectInt(t, res.Reply, 1)
	if got := argvString(res.Propagate); got != "DEL a c" {
		t.Errorf("propagated %q", got)
	}
	if events := rec.Events(); len(events) != 1 || events[0].Class != notify.ClassDel {
		t.Errorf("unexpected events %v", events)
	}
	if res := d.Do(testNow, "DEL", "missing"); res.Propagate != nil {
		t.Errorf("DEL of nothing propagated")
	}
}

func TestCommandTable(t *testing.T) {
	d, _ := newTestDB(t)
	expectErrMsg(t, d.Do(testNow, "GET").Reply, ErrArity, "wrong number of arguments for 'get' command")
	expectErrMsg(t, d.Do(testNow, "SETNX", "k", "v", "x").Reply, ErrArity, "wrong number of arguments for 'setnx' command")
	expectErr(t, d.Do(testNow, "NOSUCHCOMMAND").Reply, ErrUnknownCommand)
	expectErr(t, d.Exec(testNow, nil).Reply, ErrUnknownCommand)

	for _, spec := range Commands() {
		if spec.IsWrite() == (spec.Flags&FlagReadOnly != 0) {
			t.Errorf("%s must be either write or readonly, flags %s", spec.Name, spec.Flags)
		}
		if spec.Arity == 0 {
			t.Errorf("%s has no arity", spec.Name)
		}
	}
	if s, ok := Lookup("GGET"); !ok || !s.IsWrite() {
		t.Errorf("GGET changes the recency order and must be a write command")
	}
}

func TestSizeLimit(t *testing.T) {
	d, _ := newTestDB(t)
	if err := checkSize(value.MaxLen); err != nil {
		t.Errorf("a value of exactly MaxLen bytes is allowed")
	}
	if err := checkSize(value.MaxLen + 1); err != ErrSizeLimit {
		t.Errorf("a value above MaxLen must be rejected")
	}

	d.Do(testNow, "SET", "k", "abc")
	expectErr(t, d.Do(testNow, "SETRANGE", "k", itoa(value.MaxLen-2), "xyz").Reply, ErrSizeLimit)
	expectBulk(t, d.Do(testNow, "GET", "k").Reply, "abc")
}

func itoa(n int) string {
	return string(itob(int64(n)))
}
