// Package client implements RPC clients for the distributed key-value store system.
// It provides implementations of the store.IStore and lockmgr.ILockManager interfaces
// that communicate with remote servers via RPC.
//
// The package focuses on:
//   - Transparent RPC access to store and lock manager implementations
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStore: creates a store.IStore whose commands are executed by a remote shard.
//     Only store.Executor is implemented on the wire (one Exec message per command, one Info
//     message), the typed methods come from store.Wrap. Every command of lib/command is
//     therefore available remotely, including raw vectors sent through Exec.
//
//   - NewRPCLockMgr: creates a lockmgr.ILockManager for distributed locking operations.
//
//   - Errors: errors reported by the server arrive as *store.Error with their original code,
//     so errors.Is(err, command.ErrWrongType) works like with a local store. Transport and
//     decoding failures are store.RetCInternalError.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:5000"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	s, _ := client.NewRPCStore(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	defer s.Close()
//
//	s.Set("mykey", []byte("myvalue"), store.SetOptions{TTL: time.Minute})
//	value, exists, _ := s.Get("mykey")
//	n, _ := s.IncrBy("counter", 1)
//
//	lockMgr, _ := client.NewRPCLockMgr(2, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	acquired, ownerID, _ := lockMgr.AcquireLock("mylock", 30*time.Second)
//	if acquired {
//	  lockMgr.ReleaseLock("mylock", ownerID)
//	}
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
