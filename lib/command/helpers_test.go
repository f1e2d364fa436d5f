package command

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db/engines/maple"
	"github.com/ValentinKolb/sKV/lib/notify"
)

const testNow int64 = 1_700_000_000_000

// newTestDB creates a database with id 3 that records its events
func newTestDB(t testing.TB) (*DB, *notify.Recorder) {
	t.Helper()
	rec := notify.NewRecorder()
	d := NewDB(3, maple.NewMapleDB(nil), rec)
	t.Cleanup(func() { _ = d.Close() })
	return d, rec
}

func expectOK(t *testing.T, r Reply) {
	t.Helper()
	if r.Kind != ReplyStatus || r.Str != "OK" {
		t.Fatalf("expected OK, got %s", r)
	}
}

func expectInt(t *testing.T, r Reply, want int64) {
	t.Helper()
	if r.Kind != ReplyInt || r.Int != want {
		t.Fatalf("expected (integer) %d, got %s", want, r)
	}
}

func expectBulk(t *testing.T, r Reply, want string) {
	t.Helper()
	if r.Kind != ReplyBulk || string(r.Bulk) != want {
		t.Fatalf("expected %q, got %s", want, r)
	}
}

func expectNull(t *testing.T, r Reply) {
	t.Helper()
	if r.Kind != ReplyNull {
		t.Fatalf("expected (nil), got %s", r)
	}
}

func expectErr(t *testing.T, r Reply, target *Error) {
	t.Helper()
	if !r.IsError() {
		t.Fatalf("expected %s error, got %s", target.Kind, r)
	}
	if !errors.Is(r.AsError(), target) {
		t.Fatalf("expected %s error, got %s (%s)", target.Kind, r.Err.Kind, r.Err.Msg)
	}
}

func expectErrMsg(t *testing.T, r Reply, target *Error, msg string) {
	t.Helper()
	expectErr(t, r, target)
	if r.Err.Msg != msg {
		t.Fatalf("expected message %q, got %q", msg, r.Err.Msg)
	}
}

// argvString joins a propagation vector for comparisons
func argvString(argv [][]byte) string {
	s := ""
	for i, a := range argv {
		if i > 0 {
			s += " "
		}
		s += string(a)
	}
	return s
}
