package command

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db/engines/maple"
	"github.com/ValentinKolb/sKV/lib/group"
)

func TestSaveLoad(t *testing.T) {
	src, _ := newTestDB(t)
	src.Do(testNow, "SET", "plain", "v")
	src.Do(testNow, "SET", "ttl", "v", "PX", "500")
	src.Do(testNow, "SET", "num", "123456")
	src.Do(testNow, "INCR", "num")
	src.Do(testNow, "GSET", "a", "1", "b", "2")
	src.Do(testNow, "GGET", "b", "c")

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	dst := NewDB(3, maple.NewMapleDB(nil), nil)
	defer dst.Close()
	dst.Do(testNow, "SET", "stale", "x")
	if err := dst.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("load: %v", err)
	}

	expectBulk(t, dst.Do(testNow, "GET", "plain").Reply, "v")
	expectBulk(t, dst.Do(testNow, "GET", "num").Reply, "123457")
	expectBulk(t, dst.Do(testNow+499, "GET", "ttl").Reply, "v")
	expectNull(t, dst.Do(testNow+500, "GET", "ttl").Reply)
	expectNull(t, dst.Do(testNow, "GET", "stale").Reply)

	expectInt(t, dst.Do(testNow, "GREFCOUNT", "a").Reply, 1)
	expectInt(t, dst.Do(testNow, "GDEL", group.DeriveID([]string{"b", "c"})).Reply, 1)
	expectInt(t, dst.Do(testNow, "GREFCOUNT", "b").Reply, 1)
	expectBulk(t, dst.Do(testNow, "GGET", "a", "b").Reply.Array[1], "2")

	if err := dst.Load(bytes.NewReader(buf.Bytes()[:10])); err == nil {
		t.Errorf("loading a truncated snapshot should fail")
	}
}

func TestPropagationReplay(t *testing.T) {
	src, _ := newTestDB(t)
	replica, _ := newTestDB(t)

	script := [][]string{
		{"SET", "a", "1", "EX", "100"},
		{"INCRBYFLOAT", "a", "0.5"},
		{"SETEX", "b", "1", "temp"},
		{"SET", "c", "hello"},
		{"APPEND", "c", " world"},
		{"SETRANGE", "c", "0", "H"},
		{"MSETNX", "c", "x", "d", "y"},
		{"INCRBY", "n", "10"},
		{"DEL", "missing"},
		{"GSET", "g1", "v1", "g2", "v2"},
		{"GGET", "g1"},
	}

	var journal [][][]byte
	for i, args := range script {
		res := src.Do(testNow+int64(i), args...)
		if res.Reply.IsError() {
			t.Fatalf("%v failed: %s", args, res.Reply)
		}
		if res.Propagate != nil {
			journal = append(journal, res.Propagate)
		}
	}

	// replay much later, absolute expiries still line up
	later := testNow + 50_000
	for _, argv := range journal {
		if res := replica.Exec(later, argv); res.Reply.IsError() {
			t.Fatalf("replay of %q failed: %s", argvString(argv), res.Reply)
		}
	}

	for _, key := range []string{"a", "b", "c", "n"} {
		want := src.Do(later, "GET", key).Reply
		got := replica.Do(later, "GET", key).Reply
		if want.String() != got.String() {
			t.Errorf("%s: replica has %s, source has %s", key, got, want)
		}
	}
	wantAt, _ := src.keys.ExpireAt("a", later)
	gotAt, _ := replica.keys.ExpireAt("a", later)
	if wantAt != gotAt || wantAt != testNow+100_000 {
		t.Errorf("expiry of a: replica %d, source %d", gotAt, wantAt)
	}
	expectBulk(t, replica.Do(later, "GGET", "g2").Reply.Array[0], "v2")
}

func TestInfo(t *testing.T) {
	d, _ := newTestDB(t)
	d.Do(testNow, "SET", "k", "12345678")
	d.Do(testNow, "GET", "k")
	d.Do(testNow, "GET", "missing")
	d.Do(testNow, "INCR", "k", "extra")
	d.Do(testNow, "GSET", "a", "1")

	info := d.Info()
	if info.ID != 3 {
		t.Errorf("ID = %d", info.ID)
	}
	if info.Commands != 5 || info.Errors != 1 {
		t.Errorf("commands/errors = %d/%d, want 5/1", info.Commands, info.Errors)
	}
	if info.Hits != 1 || info.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", info.Hits, info.Misses)
	}
	if info.Keyspace.Keys != 1 || info.Groups.Groups != 1 {
		t.Errorf("keys/groups = %d/%d", info.Keyspace.Keys, info.Groups.Groups)
	}
	if info.ValueSize.Count != 1 || info.ValueSize.Max != 8 {
		t.Errorf("value size summary = %+v", info.ValueSize)
	}
}

func TestReplyBinary(t *testing.T) {
	replies := []Reply{
		OK(),
		Int(-42),
		Bulk([]byte{}),
		Null(),
		Array(Bulk([]byte("a")), Null(), Array(Int(1))),
		Fail(ErrOverflow),
	}
	for _, r := range replies {
		data, err := r.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal %s: %v", r, err)
		}
		var got Reply
		if err := got.UnmarshalBinary(data); err != nil {
			t.Fatalf("unmarshal %s: %v", r, err)
		}
		if got.String() != r.String() || got.Kind != r.Kind {
			t.Errorf("round trip changed %s into %s", r, got)
		}
	}

	var r Reply
	if err := r.UnmarshalBinary([]byte{byte(ReplyArray), 5, 0, 0, 0}); err == nil {
		t.Errorf("truncated array should fail")
	}
	data, _ := Fail(ErrWrongType).MarshalBinary()
	_ = r.UnmarshalBinary(data)
	if r.AsError() == nil || r.Err.Kind != KindWrongType {
		t.Errorf("error kind lost: %s", r)
	}
}
