package client

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/command"
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/maple"
	"github.com/ValentinKolb/sKV/lib/lockmgr"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
	storetesting "github.com/ValentinKolb/sKV/lib/store/testing"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/server"
)

// --------------------------------------------------------------------------
// In-process transport
// --------------------------------------------------------------------------

// loopbackTransport hands requests directly to a server adapter, so the tests cover
// client, serializer and adapter without a socket.
type loopbackTransport struct {
	shardID    uint64
	store      store.IStore
	adapter    server.IRPCServerAdapter
	serializer serializer.IRPCSerializer
	connected  bool
}

func (l *loopbackTransport) Connect(common.ClientConfig) error {
	l.connected = true
	return nil
}

func (l *loopbackTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	if !l.connected {
		return nil, fmt.Errorf("not connected")
	}
	var resp *common.Message
	var msg common.Message
	if shardId != l.shardID {
		resp = common.NewErrorResponse(store.RetCInvalidOperation, fmt.Sprintf("shard %d not found", shardId))
	} else if err := l.serializer.Deserialize(req, &msg); err != nil {
		resp = common.NewErrorResponse(store.RetCInternalError, err.Error())
	} else {
		resp = l.adapter.Handle(&msg, l.store)
	}
	return l.serializer.Serialize(*resp)
}

func (l *loopbackTransport) Close() error {
	l.connected = false
	return nil
}

var testSerializers = map[string]func() serializer.IRPCSerializer{
	"json":    serializer.NewJSONSerializer,
	"binary":  serializer.NewBinarySerializer,
	"msgpack": serializer.NewMsgpackSerializer,
	"cbor":    serializer.NewCBORSerializer,
}

func newLocalStore(t testing.TB) store.IStore {
	s, err := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }, nil)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRPCStore(t *testing.T) {
	for name, newSerializer := range testSerializers {
		storetesting.RunStoreTests(t, "rpc("+name+")", func() store.IStore {
			s := newSerializer()
			tr := &loopbackTransport{
				shardID:    1,
				store:      newLocalStore(t),
				adapter:    server.NewIStoreServerAdapter(),
				serializer: s,
			}
			rpcStore, err := NewRPCStore(1, common.ClientConfig{}, tr, s)
			if err != nil {
				t.Fatalf("NewRPCStore failed: %v", err)
			}
			t.Cleanup(func() { _ = rpcStore.Close() })
			return rpcStore
		})
	}
}

func TestRPCStoreErrors(t *testing.T) {
	s := serializer.NewBinarySerializer()
	tr := &loopbackTransport{
		shardID:    1,
		store:      newLocalStore(t),
		adapter:    server.NewIStoreServerAdapter(),
		serializer: s,
	}

	t.Run("CommandErrorKeepsKind", func(t *testing.T) {
		rpcStore, err := NewRPCStore(1, common.ClientConfig{}, tr, s)
		if err != nil {
			t.Fatalf("NewRPCStore failed: %v", err)
		}
		if _, err := rpcStore.Set("n", []byte("abc"), store.SetOptions{}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		_, err = rpcStore.IncrBy("n", 1)
		if !errors.Is(err, command.ErrNotInteger) {
			t.Errorf("Expected ErrNotInteger, got %v", err)
		}
	})

	t.Run("UnknownShard", func(t *testing.T) {
		rpcStore, err := NewRPCStore(2, common.ClientConfig{}, tr, s)
		if err != nil {
			t.Fatalf("NewRPCStore failed: %v", err)
		}
		_, _, err = rpcStore.Get("k")
		var se *store.Error
		if !errors.As(err, &se) || se.Code != store.RetCInvalidOperation {
			t.Errorf("Expected RetCInvalidOperation, got %v", err)
		}
	})

	t.Run("Info", func(t *testing.T) {
		rpcStore, err := NewRPCStore(1, common.ClientConfig{}, tr, s)
		if err != nil {
			t.Fatalf("NewRPCStore failed: %v", err)
		}
		if _, err := rpcStore.Set("info-key", []byte("v"), store.SetOptions{}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		info, err := rpcStore.Info()
		if err != nil {
			t.Fatalf("Info failed: %v", err)
		}
		if info.Keyspace.Keys == 0 {
			t.Errorf("Expected keys in info, got %+v", info)
		}
	})

	t.Run("ClosedTransport", func(t *testing.T) {
		rpcStore, err := NewRPCStore(1, common.ClientConfig{}, tr, s)
		if err != nil {
			t.Fatalf("NewRPCStore failed: %v", err)
		}
		if err := rpcStore.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		_, _, err = rpcStore.Get("k")
		var se *store.Error
		if !errors.As(err, &se) || se.Code != store.RetCInternalError {
			t.Errorf("Expected RetCInternalError, got %v", err)
		}
	})
}

func TestRPCLockManager(t *testing.T) {
	for name, newSerializer := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := newSerializer()
			tr := &loopbackTransport{
				shardID:    7,
				store:      newLocalStore(t),
				adapter:    server.NewLockManagerServerAdapter(),
				serializer: s,
			}
			lm, err := NewRPCLockMgr(7, common.ClientConfig{}, tr, s)
			if err != nil {
				t.Fatalf("NewRPCLockMgr failed: %v", err)
			}
			testLockRoundTrip(t, lm)
		})
	}
}

func testLockRoundTrip(t *testing.T, lm lockmgr.ILockManager) {
	ok, owner, err := lm.AcquireLock("res", 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("AcquireLock = %v, %v", ok, err)
	}
	if ok, _, _ := lm.AcquireLock("res", 0); ok {
		t.Fatalf("Expected second acquire to fail")
	}
	if ok, err := lm.ReleaseLock("res", []byte("intruder")); err != nil || ok {
		t.Fatalf("Expected foreign release to fail, got %v, %v", ok, err)
	}

	// the lease runs out, the lock is free again
	time.Sleep(80 * time.Millisecond)
	ok, owner2, err := lm.AcquireLock("res", 0)
	if err != nil || !ok {
		t.Fatalf("Expected acquire after expiry, got %v, %v", ok, err)
	}
	if string(owner) == string(owner2) {
		t.Errorf("Expected a new owner id")
	}
	if ok, err := lm.ReleaseLock("res", owner2); err != nil || !ok {
		t.Fatalf("ReleaseLock = %v, %v", ok, err)
	}
}
