// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the wire format used to transmit commands
// between the store client and the distributed state machine.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Write commands (SET, INCR, GSET, ...) are serialized together with the
//     clock of the proposing node and proposed to the RAFT cluster. Every replica executes the
//     command with that clock, so relative expiries and expired keys are evaluated identically
//     everywhere.
//
//   - Query System: Readonly commands (GET, MGET, GREFCOUNT, ...) and the database summary are
//     executed locally on the state machine through SyncRead or StaleRead and therefore do not
//     require serialization.
//
// Command Format:
//
//	Commands are serialized into a binary format with the following structure:
//
//	- 1 byte: Format version (currently 1)
//	- 8 bytes: Now, the proposer clock in unix milliseconds (int64, big endian)
//	- 4 bytes: Argument count (uint32, big endian)
//	- per argument: 4 bytes length (uint32, big endian) followed by the argument bytes
//
//	The first argument is the command name. Arguments are binary safe.
//
// Thread Safety:
//
//	The types in this package are not thread-safe and should not be shared
//	across goroutines without external synchronization. However, this is not
//	typically an issue as the RAFT protocol ensures sequential processing of
//	commands on the state machine.
package internal
