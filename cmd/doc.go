// Package cmd implements the command-line interface of sKV. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a server node with local (lstore), replicated (dstore) and
//     lock manager shards
//   - kv: String commands (set, get, getset, setrange, getrange, mget, mset, msetnx,
//     incr, incrbyfloat, append, strlen, del, exists), database info, raw command
//     execution and a benchmark tool (perf)
//   - group: Group cache commands (set, get, del, recency, oldest, refcount, id)
//   - lock: Lease locks (acquire, release)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through the environment as SKV_<FLAG> with dashes
// replaced by underscores (e.g. SKV_TRANSPORT_ENDPOINTS). The files .env and .env.local
// in the working directory are loaded on start.
//
// Examples:
//
//	skv serve --shards "100=lstore,200=lockmgr(lstore)" --journal-dir ./journal
//	skv kv set greeting hello --ttl 10s
//	skv kv incr visits
//	skv group set a 1 b 2
//	skv group oldest 10
//	skv lock acquire deploy --ttl 1m
//
// See skv --help for a list of all commands.
package cmd
