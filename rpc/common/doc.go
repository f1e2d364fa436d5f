// Package common provides the data structures shared by the RPC server, the RPC client and
// the transports.
//
// Key Components:
//
//   - Message: the single structure used for all requests and responses. A store request
//     carries a complete command vector in Args (MsgTKVExec), so adding a command to
//     lib/command never changes the protocol. The reply travels back binary encoded
//     (command.Reply.MarshalBinary) in Value. Errors travel as text plus store.RetCode, and
//     Message.Error rebuilds the *store.Error on the client so errors.Is against the command
//     sentinels keeps working across the wire.
//
//   - MessageType: exec and info for stores, acquire and release for lock managers, plus the
//     control types success, error and custom.
//
//   - ServerConfig: shards (lstore, dstore, lockmgr(lstore), lockmgr(dstore)), RAFT parameters,
//     journal settings, transport tuning and logging. Provides conversion helpers to
//     Dragonboat configurations.
//
//   - ClientConfig: timeout plus transport settings (endpoints, retries, connections per
//     endpoint, socket and TCP options).
//
//   - Logging: every package logs through Dragonboat's logger facade. InitLoggers installs
//     either the fixed column text logger ("LEVEL | name | message") or a zap backed JSON
//     logger and applies the configured level to Dragonboat's internal loggers and ours.
package common
