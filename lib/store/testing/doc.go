// Package testing provides a conformance suite for store.IStore implementations.
//
// RunStoreTests exercises the typed string and group methods and checks that command errors
// surface as *store.Error values that still match the lib/command sentinels with errors.Is.
// Every store implementation (lstore, dstore, the RPC client) runs the same suite:
//
//	func TestLocalStore(t *testing.T) {
//	    storetesting.RunStoreTests(t, "lstore", func() store.IStore {
//	        s, _ := lstore.NewLocalStore(factory, nil)
//	        return s
//	    })
//	}
package testing
