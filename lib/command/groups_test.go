package command

import (
	"testing"

	"github.com/ValentinKolb/sKV/lib/group"
	"github.com/ValentinKolb/sKV/lib/notify"
)

func TestGroupCommands(t *testing.T) {
	t.Run("WriteAndRead", func(t *testing.T) {
		d, rec := newTestDB(t)
		expectOK(t, d.Do(testNow, "GSET", "a", "1", "b", "two").Reply)

		r := d.Do(testNow, "GGET", "a", "b", "c").Reply
		if r.Kind != ReplyArray || len(r.Array) != 3 {
			t.Fatalf("GGET = %s", r)
		}
		expectBulk(t, r.Array[0], "1")
		expectBulk(t, r.Array[1], "two")
		expectNull(t, r.Array[2])

		// the group cache is separate from the keyspace
		expectNull(t, d.Do(testNow, "GET", "a").Reply)

		events := rec.Events()
		if len(events) != 2 || events[0].Class != notify.ClassGroupSet || events[1].Key != "b" {
			t.Errorf("unexpected events %v", events)
		}
	})

	t.Run("OddArguments", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectErrMsg(t, d.Do(testNow, "GSET", "a", "1", "b").Reply, ErrArity, "wrong number of arguments for GSET")
		expectInt(t, d.Do(testNow, "GREFCOUNT", "a").Reply, 0)
	})

	t.Run("SkipsEmptyValues", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "GSET", "a", "", "b", "2")
		r := d.Do(testNow, "GGET", "a").Reply
		expectNull(t, r.Array[0])
		// membership, not the written value, takes the reference
		expectInt(t, d.Do(testNow, "GREFCOUNT", "a").Reply, 1)
	})

	t.Run("ReferenceCountConservation", func(t *testing.T) {
		d, _ := newTestDB(t)
		g := group.DeriveID([]string{"a", "b"})
		h := group.DeriveID([]string{"b", "c"})

		d.Do(testNow, "GSET", "a", "1", "b", "2")
		d.Do(testNow, "GSET", "b", "3", "c", "4")
		expectInt(t, d.Do(testNow, "GREFCOUNT", "b").Reply, 2)

		expectInt(t, d.Do(testNow, "GDEL", g).Reply, 1)
		expectInt(t, d.Do(testNow, "GREFCOUNT", "b").Reply, 1)
		expectInt(t, d.Do(testNow, "GREFCOUNT", "a").Reply, 0)
		expectBulk(t, d.Do(testNow, "GGET", "b").Reply.Array[0], "3")

		rec := notify.NewRecorder()
		d.events = rec
		expectInt(t, d.Do(testNow, "GDEL", h).Reply, 1)
		expectInt(t, d.Do(testNow, "GREFCOUNT", "b").Reply, 0)
		expectNull(t, d.Do(testNow, "GGET", "b").Reply.Array[0])

		for _, e := range rec.Events() {
			if e.Class != notify.ClassGroupDel {
				t.Errorf("group removal emitted %s", e.Class)
			}
		}
		if n := len(rec.Events()); n != 2 {
			t.Errorf("removing {b,c} should purge two keys, got %d events", n)
		}
	})

	t.Run("IdempotentRead", func(t *testing.T) {
		d, _ := newTestDB(t)
		id := group.DeriveID([]string{"a", "b"})
		d.Do(testNow, "GSET", "a", "1", "b", "2")

		before := d.Do(testNow, "GRECENCY", id).Reply
		d.Do(testNow, "GGET", "a", "b")
		middle := d.Do(testNow, "GRECENCY", id).Reply
		d.Do(testNow, "GGET", "a", "b")
		after := d.Do(testNow, "GRECENCY", id).Reply

		if !(before.Int < middle.Int && middle.Int < after.Int) {
			t.Errorf("recency should advance on every read: %d %d %d", before.Int, middle.Int, after.Int)
		}
		expectInt(t, d.Do(testNow, "GREFCOUNT", "a").Reply, 1)
		expectInt(t, d.Do(testNow, "GREFCOUNT", "b").Reply, 1)
	})

	t.Run("ReadOnlyGroupTakesNoReferences", func(t *testing.T) {
		d, _ := newTestDB(t)
		d.Do(testNow, "GSET", "a", "1")
		d.Do(testNow, "GGET", "a", "x")

		// removing the group registered by the read must not drop a's reference
		expectInt(t, d.Do(testNow, "GDEL", group.DeriveID([]string{"a", "x"})).Reply, 1)
		expectInt(t, d.Do(testNow, "GREFCOUNT", "a").Reply, 1)
		expectBulk(t, d.Do(testNow, "GGET", "a").Reply.Array[0], "1")
	})

	t.Run("RemoveUnknownAndInvalid", func(t *testing.T) {
		d, _ := newTestDB(t)
		res := d.Do(testNow, "GDEL", group.DeriveID([]string{"nope"}))
		expectInt(t, res.Reply, 0)
		if res.Propagate != nil {
			t.Errorf("removing an unknown group propagated")
		}
		expectErr(t, d.Do(testNow, "GDEL", "not-a-group").Reply, ErrInvalidGroup)
		expectErr(t, d.Do(testNow, "GDEL", "").Reply, ErrInvalidGroup)
	})

	t.Run("Recency", func(t *testing.T) {
		d, _ := newTestDB(t)
		expectNull(t, d.Do(testNow, "GRECENCY", group.DeriveID([]string{"a"})).Reply)

		d.Do(testNow, "GSET", "a", "1")
		d.Do(testNow, "GSET", "b", "1")
		d.Do(testNow, "GSET", "c", "1")
		d.Do(testNow, "GGET", "a")

		r := d.Do(testNow, "GOLDEST", "2").Reply
		if r.Kind != ReplyArray || len(r.Array) != 2 {
			t.Fatalf("GOLDEST = %s", r)
		}
		expectBulk(t, r.Array[0], group.DeriveID([]string{"b"}))
		expectBulk(t, r.Array[1], group.DeriveID([]string{"c"}))

		expectErr(t, d.Do(testNow, "GOLDEST", "-1").Reply, ErrNotInteger)
		if r := d.Do(testNow, "GOLDEST", "0").Reply; len(r.Array) != 0 {
			t.Errorf("GOLDEST 0 = %s", r)
		}
	})

	t.Run("Propagation", func(t *testing.T) {
		d, _ := newTestDB(t)
		if got := argvString(d.Do(testNow, "GSET", "a", "1").Propagate); got != "GSET a 1" {
			t.Errorf("GSET propagated %q", got)
		}
		if got := argvString(d.Do(testNow, "GGET", "a").Propagate); got != "GGET a" {
			t.Errorf("GGET propagated %q", got)
		}
		if res := d.Do(testNow, "GREFCOUNT", "a"); res.Propagate != nil {
			t.Errorf("readonly command propagated")
		}
	})
}
