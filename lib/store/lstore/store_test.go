package lstore

import (
	"os"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/maple"
	"github.com/ValentinKolb/sKV/lib/notify"
	"github.com/ValentinKolb/sKV/lib/store"
	storetesting "github.com/ValentinKolb/sKV/lib/store/testing"
)

func factory() db.KVDB {
	return maple.NewMapleDB(nil)
}

func TestLocalStore(t *testing.T) {
	storetesting.RunStoreTests(t, "lstore", func() store.IStore {
		s, err := NewLocalStore(factory, nil)
		if err != nil {
			panic(err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})

	storetesting.RunStoreTests(t, "lstore(journal)", func() store.IStore {
		s, err := NewLocalStore(factory, &Options{JournalDir: t.TempDir(), Fsync: true})
		if err != nil {
			panic(err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestJournalReplay(t *testing.T) {
	dir := t.TempDir()
	now := int64(1_700_000_000_000)
	clock := func() int64 { return now }

	s, err := NewLocalStore(factory, &Options{ShardID: 7, JournalDir: dir, Clock: clock})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mustExec(t, s, "SET", "a", "1", "EX", "10")
	mustExec(t, s, "INCRBYFLOAT", "a", "0.5")
	mustExec(t, s, "SET", "b", "hello")
	mustExec(t, s, "APPEND", "b", " world")
	mustExec(t, s, "PSETEX", "gone", "5", "x")
	mustExec(t, s, "GSET", "g1", "v1", "g2", "v2")
	mustExec(t, s, "GET", "b")
	if s.JournalSize() == 0 {
		t.Fatalf("journal is empty")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// reopen a second later, "gone" expired in the meantime
	now += 1000
	r, err := NewLocalStore(factory, &Options{ShardID: 7, JournalDir: dir, Clock: clock})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r.Close()

	expect(t, r, "a", "1.5")
	expect(t, r, "b", "hello world")
	if _, found, _ := r.Get("gone"); found {
		t.Errorf("expired key came back from the journal")
	}
	values, err := r.GroupGet("g2")
	if err != nil || string(values[0]) != "v2" {
		t.Errorf("group value lost: %q %v", values, err)
	}

	// the expiry is absolute and survives the restart
	now += 9000
	if _, found, _ := r.Get("a"); found {
		t.Errorf("a should expire 10s after it was set")
	}
}

func TestJournalTornTail(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(factory, &Options{JournalDir: dir})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mustExec(t, s, "SET", "k", "v")
	_ = s.Close()

	path := journalPath(dir, 0)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	_, _ = f.WriteString("*3\r\n$3\r\nSET\r\n$1\r\nx")
	_ = f.Close()

	r, err := NewLocalStore(factory, &Options{JournalDir: dir})
	if err != nil {
		t.Fatalf("reopen with torn tail: %v", err)
	}
	expect(t, r, "k", "v")
	mustExec(t, r, "SET", "k2", "v2")
	_ = r.Close()

	r, err = NewLocalStore(factory, &Options{JournalDir: dir})
	if err != nil {
		t.Fatalf("reopen after truncation: %v", err)
	}
	defer r.Close()
	expect(t, r, "k2", "v2")
}

func TestJournalCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(journalPath(dir, 0), []byte("garbage\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLocalStore(factory, &Options{JournalDir: dir}); err == nil {
		t.Errorf("a corrupt journal must fail the store")
	}
}

func TestEvents(t *testing.T) {
	rec := notify.NewRecorder()
	s, err := NewLocalStore(factory, &Options{ShardID: 2, Events: rec})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()

	mustExec(t, s, "SET", "k", "v")
	mustExec(t, s, "INCR", "n")
	events := rec.Events()
	if len(events) != 2 || events[0].DB != 2 || events[1].Class != notify.ClassIncrBy {
		t.Errorf("unexpected events %v", events)
	}
}

func mustExec(t *testing.T, s *Store, args ...any) {
	t.Helper()
	reply, err := s.Exec(store.Args(args...))
	if err != nil || reply.IsError() {
		t.Fatalf("%v: %s %v", args, reply, err)
	}
}

func expect(t *testing.T, s *Store, key, want string) {
	t.Helper()
	v, found, err := s.Get(key)
	if err != nil || !found || string(v) != want {
		t.Fatalf("Get(%q) = %q (found=%v, err=%v), want %q", key, v, found, err, want)
	}
}
