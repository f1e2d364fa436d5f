// Package server runs the shards of one node and answers the requests a transport receives for
// them. Every shard is a store.IStore paired with an adapter that turns request messages into
// calls on that store.
//
// Shard types (common.ShardType, selected per shard id in ServerConfig.Shards):
//
//	lstore            in process store, journaled to ServerConfig.JournalDir when set
//	dstore            raft replicated store, needs the raft settings of the config
//	lockmgr(lstore)   lock manager on top of an lstore
//	lockmgr(dstore)   lock manager on top of a dstore
//
// Adapters:
//
//   - IStore adapter: MsgTKVExec hands the command vector to store.Executor.Exec and returns
//     the binary encoded command.Reply. A command error (WRONGTYPE, not an integer, ...) is a
//     normal reply, only failures of the store itself become MsgTError. MsgTKVInfo returns the
//     json encoded command.Info.
//   - Lock manager adapter: MsgTLCKAcquire and MsgTLCKRelease. The lease travels in
//     milliseconds, the owner id in Value.
//
// A request for an unknown shard is answered with RetCInvalidOperation, a message type the
// shard's adapter does not know with RetCUnsupportedOperation.
//
// Metrics (VictoriaMetrics/metrics), served by MetricsHandler:
//
//	skv_rpc_requests_total{shard,type}
//	skv_rpc_errors_total{shard,type}
//	skv_rpc_request_duration_seconds{type}
//
// All shards of a node share one notify.Dispatcher, the server logs every keyspace event it
// receives at debug level.
//
// Example:
//
//	s := server.NewRPCServer(common.ServerConfig{
//		Shards: []common.ServerShard{
//			{ShardID: 100, Type: common.ShardTypeLocalIStore},
//			{ShardID: 200, Type: common.ShardTypeLocalILockManager},
//		},
//		Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//		TimeoutSecond: 5,
//	}, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//
//	if err := s.Serve(); err != nil {
//		log.Fatal(err)
//	}
//
// Thread-safety: Handle is called concurrently by the transport. Serve must be called once,
// Close may be called from a signal handler.
package server
