package maple

import (
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	dbtesting "github.com/ValentinKolb/sKV/lib/db/testing"
	"github.com/ValentinKolb/sKV/lib/value"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB", func() db.KVDB {
		return NewMapleDB(nil)
	})

	dbtesting.RunKVDBTests(t, "MapleDB(1 shard, fast gc)", func() db.KVDB {
		return NewMapleDB(&DBOptions{NumShards: 1, GCInterval: 5 * time.Millisecond})
	})
}

func TestGetInfo(t *testing.T) {
	database := NewMapleDB(&DBOptions{NumShards: 4})
	defer database.Close()

	for i := 0; i < 400; i++ {
		key := fmt.Sprintf("info-key-%d", i)
		database.SetKey(key, db.StringObject(value.NewRaw([]byte(key))), 7)
	}

	info := database.GetInfo()
	if info.DbType != db.ImplMaple {
		t.Errorf("DbType = %s, want %s", info.DbType, db.ImplMaple)
	}
	if info.Keys != 400 {
		t.Errorf("Keys = %d, want 400", info.Keys)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("SizeBytes should be positive, got %d", info.SizeBytes)
	}
	if !database.SupportsFeature(db.FeatureSave | db.FeatureLoad | db.FeatureGarbageCollect) {
		t.Errorf("maple should support persistence and garbage collection")
	}
}

func Benchmark(t *testing.B) {
	dbtesting.RunKVDBBenchmarks(t, "MapleDB", func() db.KVDB {
		return NewMapleDB(nil)
	})
}
