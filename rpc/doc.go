// Package rpc makes the stores of a node reachable over the network. It is split into layers
// that can be combined freely, as long as client and server agree on serializer and transport:
//
//	client      store.IStore and lockmgr.ILockManager backed by a remote shard
//	  |         (common.Message requests and responses)
//	serializer  binary, msgpack, cbor, json or gob encoding of the messages
//	  |         (opaque bytes + shard id)
//	transport   http, tcp or unix
//	  |
//	server      routes requests by shard id to the local stores and lock managers
//
// Package common holds the Message type, the client and server configuration and the logger
// factory shared by all layers.
//
// Commands travel as command vectors (argv), replies as the binary encoding of command.Reply.
// The RPC layer therefore supports every command of the store without knowing any of them,
// a new command only needs an entry in the command table.
//
// Client and server both publish VictoriaMetrics counters and histograms (skv_rpc_*,
// skv_transport_*), see the server and transport packages for the names.
package rpc
