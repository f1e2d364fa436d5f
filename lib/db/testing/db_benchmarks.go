package testing

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/value"
)

// benchCase is one parallel benchmark against a fresh database.
// fill populates the keyspace before the timer starts (n is b.N), op receives an index that
// is unique across all workers and a random source of its worker.
type benchCase struct {
	name     string
	features db.Feature
	fill     func(database db.KVDB, n int)
	op       func(database db.KVDB, i int, rnd *rand.Rand)
}

const benchKeys = 10_000

func benchKey(i int) string { return fmt.Sprintf("bench-key-%d", i) }

func benchObject(s string) db.Object {
	return db.StringObject(value.EncodeCandidate([]byte(s)))
}

// fillKeys writes n keys. If every > 0, each every-th key expires at now+1+i%spread
func fillKeys(database db.KVDB, n int, now int64, every, spread int) {
	for i := 0; i < n; i++ {
		key := benchKey(i)
		database.SetKey(key, benchObject(key), now)
		if every > 0 && i%every == 0 {
			database.SetExpire(key, now+1+int64(i%spread), now)
		}
	}
}

var benchCases = []benchCase{
	{
		name:     "SetKey",
		features: db.FeatureSetKey,
		op: func(database db.KVDB, i int, _ *rand.Rand) {
			key := benchKey(i)
			database.SetKey(key, benchObject(key), 0)
		},
	},
	{
		name:     "SetKeyExisting",
		features: db.FeatureSetKey,
		fill:     func(database db.KVDB, _ int) { fillKeys(database, benchKeys, 0, 0, 1) },
		op: func(database db.KVDB, i int, _ *rand.Rand) {
			database.SetKey(benchKey(i%benchKeys), benchObject(fmt.Sprint(i)), 0)
		},
	},
	{
		name:     "SetKeyWithExpiry",
		features: db.FeatureSetKey | db.FeatureExpire,
		op: func(database db.KVDB, i int, _ *rand.Rand) {
			key, now := benchKey(i), int64(i)
			database.SetKey(key, benchObject(key), now)
			database.SetExpire(key, now+2, now)
		},
	},
	{
		name:     "Lookup",
		features: db.FeatureSetKey | db.FeatureLookup,
		fill:     func(database db.KVDB, _ int) { fillKeys(database, benchKeys, 0, 0, 1) },
		op: func(database db.KVDB, i int, _ *rand.Rand) {
			database.Lookup(benchKey(i%benchKeys), 0)
		},
	},
	{
		// half of the keys expire, about a quarter of all lookups hits an expired key
		name:     "LookupWithExpiry",
		features: db.FeatureSetKey | db.FeatureLookup | db.FeatureExpire,
		fill:     func(database db.KVDB, _ int) { fillKeys(database, benchKeys, 1000, 2, 1000) },
		op: func(database db.KVDB, i int, _ *rand.Rand) {
			database.Lookup(benchKey(i%benchKeys), 1500)
		},
	},
	{
		name:     "Delete",
		features: db.FeatureSetKey | db.FeatureDelete,
		fill:     func(database db.KVDB, n int) { fillKeys(database, n, 0, 0, 1) },
		op: func(database db.KVDB, i int, _ *rand.Rand) {
			database.Delete(benchKey(i), 0)
		},
	},
	{
		// lookup, set, delete and has in turn, every 10th op on a key that was never written
		name:     "MixedUsage",
		features: db.FeatureSetKey | db.FeatureLookup | db.FeatureDelete | db.FeatureHas,
		fill:     func(database db.KVDB, n int) { fillKeys(database, min(n, 100_000), 0, 0, 1) },
		op: func(database db.KVDB, i int, _ *rand.Rand) {
			key := benchKey(i % 100_000)
			if i%10 == 0 {
				key = fmt.Sprintf("new-key-%d", i)
			}
			switch i % 4 {
			case 0:
				database.Lookup(key, 0)
			case 1:
				database.SetKey(key, benchObject(key), 0)
			case 2:
				database.Delete(key, 0)
			case 3:
				database.Has(key, 0)
			}
		},
	},
	{
		// 70% lookups, 30% writes with a fresh expiry while the clock moves forward
		name:     "MixedUsageWithExpiry",
		features: db.FeatureSetKey | db.FeatureLookup | db.FeatureExpire,
		fill:     func(database db.KVDB, _ int) { fillKeys(database, 5*benchKeys, 1000, 1, 2000) },
		op: func(database db.KVDB, i int, rnd *rand.Rand) {
			key, now := benchKey(i%(5*benchKeys)), 1000+int64(i)
			if rnd.Float32() < .7 {
				database.Lookup(key, now)
				return
			}
			database.SetKey(key, benchObject(key), now)
			database.SetExpire(key, now+1+int64(rnd.Intn(1000)), now)
		},
	},
}

// RunKVDBBenchmarks runs all benchmarks against databases created by factory
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	for _, bc := range benchCases {
		b.Run(bc.name, func(b *testing.B) {
			database := factory()
			b.Cleanup(func() { _ = database.Close() })
			requireFeature(b, database, bc.features)

			if bc.fill != nil {
				bc.fill(database, b.N)
			}

			// a shared counter hands every worker distinct indices
			var next atomic.Int64
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				rnd := rand.New(rand.NewSource(next.Load()))
				for pb.Next() {
					bc.op(database, int(next.Add(1)-1), rnd)
				}
			})
		})
	}

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})
}

// benchmarkSaveLoad measures snapshots of a keyspace with benchKeys entries, sequentially
func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	database := factory()
	b.Cleanup(func() { _ = database.Close() })
	requireFeature(b, database, db.FeatureSetKey|db.FeatureSave|db.FeatureLoad)
	fillKeys(database, benchKeys, 0, 0, 1)

	var snapshot bytes.Buffer
	if err := database.Save(&snapshot); err != nil {
		b.Fatalf("Save failed: %v", err)
	}

	b.Run("Save", func(b *testing.B) {
		var buf bytes.Buffer
		for i := 0; i < b.N; i++ {
			buf.Reset()
			_ = database.Save(&buf)
		}
	})

	b.Run("Load", func(b *testing.B) {
		target := factory()
		defer target.Close()
		for i := 0; i < b.N; i++ {
			_ = target.Load(bytes.NewReader(snapshot.Bytes()))
		}
	})
}
