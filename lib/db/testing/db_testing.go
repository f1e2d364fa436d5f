package testing

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/value"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetKey&Lookup", func(t *testing.T) {
			testSetKeyLookup(t, factory())
		})

		t.Run("Add", func(t *testing.T) {
			testAdd(t, factory())
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory())
		})

		t.Run("Rebind", func(t *testing.T) {
			testRebind(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory())
		})

		t.Run("ManyExpiringKeys", func(t *testing.T) {
			testManyExpiringKeys(t, factory())
		})

		t.Run("Collector", func(t *testing.T) {
			testCollector(t, factory())
		})

		t.Run("Ownership", func(t *testing.T) {
			testOwnership(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func str(s string) db.Object {
	return db.StringObject(value.NewRaw([]byte(s)))
}

// lookupString returns the textual value of key, failing the test if the key holds no object
func lookupString(t *testing.T, database db.KVDB, key string, now int64) string {
	t.Helper()
	obj, ok := database.Lookup(key, now)
	if !ok {
		t.Fatalf("Expected key %s to exist at %d", key, now)
	}
	return obj.Val.String()
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetKeyLookup(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetKey|db.FeatureLookup)

	database.SetKey("k", str("v1"), 1)
	if got := lookupString(t, database, "k", 1); got != "v1" {
		t.Errorf("Expected value v1, got %s", got)
	}

	database.SetKey("k", str("v2"), 2)
	if got := lookupString(t, database, "k", 2); got != "v2" {
		t.Errorf("Expected value v2, got %s", got)
	}

	if _, ok := database.Lookup("nonexistent-key", 2); ok {
		t.Errorf("Expected nonexistent key to return found=false")
	}

	// SetKey clears the expiry
	database.SetExpire("k", 100, 3)
	database.SetKey("k", str("v3"), 4)
	if at, _ := database.ExpireAt("k", 4); at != 0 {
		t.Errorf("SetKey should clear the expiry, got %d", at)
	}
	if !database.Has("k", 1000) {
		t.Errorf("Key should not expire after SetKey")
	}

	// object type is kept
	database.SetKey("list", db.Object{Type: db.TypeList, Val: value.NewRaw(nil)}, 5)
	obj, _ := database.Lookup("list", 5)
	if obj.Type != db.TypeList {
		t.Errorf("Expected type list, got %s", obj.Type)
	}
}

func testAdd(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureLookup)

	if !database.Add("k", str("first"), 1) {
		t.Errorf("Add on absent key should succeed")
	}
	if database.Add("k", str("second"), 2) {
		t.Errorf("Add on existing key should fail")
	}
	if got := lookupString(t, database, "k", 2); got != "first" {
		t.Errorf("Add must not overwrite, got %s", got)
	}

	// an expired key counts as absent
	database.SetExpire("k", 10, 3)
	if !database.Add("k", str("third"), 10) {
		t.Errorf("Add on expired key should succeed")
	}
	if got := lookupString(t, database, "k", 11); got != "third" {
		t.Errorf("Expected third, got %s", got)
	}
	if at, _ := database.ExpireAt("k", 11); at != 0 {
		t.Errorf("Key added over an expired one must not inherit the expiry, got %d", at)
	}
}

func testOverwrite(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureOverwrite|db.FeatureExpire)

	if database.Overwrite("missing", str("x"), 1) {
		t.Errorf("Overwrite of a missing key should fail")
	}
	if database.Has("missing", 1) {
		t.Errorf("Overwrite must not create keys")
	}

	database.SetKey("k", str("a"), 1)
	database.SetExpire("k", 500, 1)

	if !database.Overwrite("k", str("b"), 2) {
		t.Errorf("Overwrite of an existing key should succeed")
	}
	if got := lookupString(t, database, "k", 2); got != "b" {
		t.Errorf("Expected b, got %s", got)
	}
	if at, _ := database.ExpireAt("k", 2); at != 500 {
		t.Errorf("Overwrite must keep the expiry, got %d", at)
	}
}

func testRebind(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureOverwrite|db.FeatureExpire)

	database.SetKey("k", str("abc"), 1)
	database.SetExpire("k", 900, 1)

	private := value.NewRaw([]byte("xyz"))
	database.Rebind("k", private)

	obj, ok := database.Lookup("k", 2)
	if !ok || obj.Val != private {
		t.Fatalf("Rebind should install the given value")
	}
	if obj.Type != db.TypeString {
		t.Errorf("Rebind must keep the type")
	}
	if at, _ := database.ExpireAt("k", 2); at != 900 {
		t.Errorf("Rebind must keep the expiry, got %d", at)
	}

	// missing keys are not created
	database.Rebind("missing", value.NewRaw([]byte("x")))
	if database.Has("missing", 2) {
		t.Errorf("Rebind must not create keys")
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureDelete|db.FeatureHas)

	database.SetKey("k", str("v"), 1)
	if !database.Has("k", 1) {
		t.Errorf("Expected key to exist before delete")
	}

	if !database.Delete("k", 2) {
		t.Errorf("Delete of an existing key should report true")
	}
	if database.Has("k", 2) {
		t.Errorf("Expected key to not exist after delete")
	}
	if database.Delete("k", 3) {
		t.Errorf("Delete of a missing key should report false")
	}

	// deleting an expired key reports false
	database.SetKey("e", str("v"), 4)
	database.SetExpire("e", 5, 4)
	if database.Delete("e", 6) {
		t.Errorf("Delete of an expired key should report false")
	}
}

func testKeyExpiry(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureExpire|db.FeatureLookup)

	database.SetKey("k", str("v"), 100)
	if !database.SetExpire("k", 150, 100) {
		t.Fatalf("SetExpire on existing key should succeed")
	}
	if database.SetExpire("missing", 150, 100) {
		t.Errorf("SetExpire on missing key should fail")
	}

	if at, ok := database.ExpireAt("k", 120); !ok || at != 150 {
		t.Errorf("ExpireAt = (%d, %v), want (150, true)", at, ok)
	}
	if _, ok := database.Lookup("k", 149); !ok {
		t.Errorf("Key must exist before its expiry")
	}
	if _, ok := database.Lookup("k", 150); ok {
		t.Errorf("Key must be gone at its expiry")
	}
	if _, ok := database.ExpireAt("k", 151); ok {
		t.Errorf("ExpireAt must not report an expired key")
	}

	// removing the expiry
	database.SetKey("p", str("v"), 200)
	database.SetExpire("p", 210, 200)
	database.SetExpire("p", 0, 205)
	if !database.Has("p", 10_000) {
		t.Errorf("Key without expiry must not expire")
	}
}

func testManyExpiringKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureExpire|db.FeatureLookup)

	numKeys := 1000
	base := int64(1000)

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("expire-key-%d", i)
		database.SetKey(key, str(fmt.Sprintf("expire-value-%d", i)), base)
		if ttl := int64(i % 100); ttl > 0 {
			database.SetExpire(key, base+ttl, base)
		}
	}

	for offset := int64(0); offset <= 100; offset += 10 {
		now := base + offset
		for i := 0; i < numKeys; i++ {
			key := fmt.Sprintf("expire-key-%d", i)
			ttl := int64(i % 100)
			_, exists := database.Lookup(key, now)
			shouldExist := ttl == 0 || ttl > offset
			if exists != shouldExist {
				t.Errorf("Key %s at offset %d (ttl=%d): exists=%v, want %v", key, offset, ttl, exists, shouldExist)
			}
		}
	}
}

func testCollector(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureGarbageCollect|db.FeatureExpire)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("gc-key-%d", i)
		database.SetKey(key, str("v"), 1)
		database.SetExpire(key, 50, 1)
	}
	database.SetKey("keep", str("v"), 1)

	// advancing the clock lets the collector remove the keys without any lookup
	database.SetClock(100)
	if database.Clock() != 100 {
		t.Errorf("Clock = %d, want 100", database.Clock())
	}
	database.SetClock(10)
	if database.Clock() != 100 {
		t.Errorf("Clock must not move backwards, got %d", database.Clock())
	}

	deadline := time.Now().Add(5 * time.Second)
	for database.Len() > 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if database.Len() != 1 {
		t.Errorf("Collector should leave 1 key, Len() = %d", database.Len())
	}
}

func testOwnership(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetKey|db.FeatureDelete)

	v := value.NewRaw([]byte("owned"))
	database.SetKey("a", db.StringObject(v), 1)
	if v.Owners() != 1 || !v.Exclusive() {
		t.Errorf("Stored value should have exactly one owner, has %d", v.Owners())
	}

	// the same instance under a second key is no longer exclusive
	database.SetKey("b", db.StringObject(v), 1)
	if v.Owners() != 2 || v.Exclusive() {
		t.Errorf("Value under two keys should have two owners, has %d", v.Owners())
	}

	// storing the same instance again keeps the count
	database.Overwrite("a", db.StringObject(v), 2)
	if v.Owners() != 2 {
		t.Errorf("Re-storing a value must not change its count, has %d", v.Owners())
	}

	database.Delete("b", 3)
	if v.Owners() != 1 {
		t.Errorf("Delete should release the value, has %d owners", v.Owners())
	}

	database.SetKey("a", str("other"), 4)
	if v.Owners() != 0 {
		t.Errorf("Replacing should release the value, has %d owners", v.Owners())
	}

	// shared values are never counted
	shared := value.FromInt64(7)
	database.SetKey("s", db.StringObject(shared), 5)
	if shared.Owners() != 0 || shared.Exclusive() {
		t.Errorf("Shared values are never exclusive")
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	database2 := factory()

	// close the databases after the test
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSave|db.FeatureLoad|db.FeatureExpire)

	numEntries := 1000
	now := int64(1_000)

	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("save-load-test-key-%d", i)
		switch i % 3 {
		case 0:
			database.SetKey(key, str(fmt.Sprintf("save-load-test-value-%d", i)), now)
		case 1:
			database.SetKey(key, db.StringObject(value.FromInt64(int64(i))), now)
		case 2:
			database.SetKey(key, db.StringObject(value.NewInt(int64(i)*1_000_000)), now)
			database.SetExpire(key, now+int64(i), now)
		}
	}
	database.SetKey("expired", str("gone"), now)
	database.SetExpire("expired", now, now)

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}
	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	if database2.Clock() != database.Clock() {
		t.Errorf("Clock mismatch after load: %d vs %d", database2.Clock(), database.Clock())
	}
	if database2.Has("expired", now) {
		t.Errorf("Expired keys must not be saved")
	}

	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("save-load-test-key-%d", i)
		want, _ := database.Lookup(key, now)
		got, ok := database2.Lookup(key, now)
		if !ok {
			t.Errorf("Key %s not found after Load", key)
			continue
		}
		if !got.Val.Equal(want.Val) || got.Val.Encoding() != want.Val.Encoding() {
			t.Errorf("Value mismatch for key %s: expected %s (%s), got %s (%s)",
				key, want.Val, want.Val.Encoding(), got.Val, got.Val.Encoding())
		}
		wantAt, _ := database.ExpireAt(key, now)
		gotAt, _ := database2.ExpireAt(key, now)
		if wantAt != gotAt {
			t.Errorf("Expiry mismatch for key %s: expected %d, got %d", key, wantAt, gotAt)
		}
	}

	// pooled integers stay pooled
	obj, _ := database2.Lookup("save-load-test-key-1", now)
	if !obj.Val.IsShared() {
		t.Errorf("Small integer should be restored as shared value")
	}

	// garbage input
	if err := database2.Load(bytes.NewReader([]byte("not a snapshot"))); err == nil {
		t.Errorf("Load should fail on invalid input")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetKey|db.FeatureLookup)

	// empty key
	database.SetKey("", str("empty-key-value"), 1)
	if got := lookupString(t, database, "", 1); got != "empty-key-value" {
		t.Errorf("Expected empty-key-value, got %s", got)
	}

	// empty value
	database.SetKey("empty-value", str(""), 1)
	if got := lookupString(t, database, "empty-value", 1); got != "" {
		t.Errorf("Expected empty value, got %q", got)
	}

	// binary key
	binKey := string([]byte{0, 1, 2, 255})
	database.SetKey(binKey, str("bin"), 1)
	if got := lookupString(t, database, binKey, 1); got != "bin" {
		t.Errorf("Expected bin, got %s", got)
	}

	// large value
	large := bytes.Repeat([]byte("x"), 1024*1024)
	database.SetKey("large", db.StringObject(value.NewRaw(large)), 1)
	obj, _ := database.Lookup("large", 1)
	if obj.Val.Len() != len(large) {
		t.Errorf("Large value length mismatch: %d", obj.Val.Len())
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetKey|db.FeatureLookup|db.FeatureDelete)

	numWorkers := 8
	opsPerWorker := 2_000
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var errorCount atomic.Int32

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			for i := 0; i < opsPerWorker; i++ {
				now := int64(i)
				// private keys can be checked exactly, hot keys only for consistency
				key := fmt.Sprintf("key-%d-%d", workerId, i%100)
				hot := fmt.Sprintf("hot-key-%d", i%10)

				switch i % 10 {
				case 0, 1, 2, 3, 4, 5:
					database.SetKey(key, str(key), now)
					database.SetKey(hot, db.StringObject(value.FromInt64(int64(i))), now)
				case 6, 7, 8:
					if obj, ok := database.Lookup(key, now); ok && obj.Val.String() != key {
						errorCount.Add(1)
					}
					if obj, ok := database.Lookup(hot, now); ok && obj.Type != db.TypeString {
						errorCount.Add(1)
					}
				case 9:
					database.Delete(key, now)
					if database.Has(key, now) {
						errorCount.Add(1)
					}
				}
			}
		}(w)
	}

	wg.Wait()

	if n := errorCount.Load(); n > 0 {
		t.Errorf("Found %d inconsistencies during concurrent usage", n)
	}
}
