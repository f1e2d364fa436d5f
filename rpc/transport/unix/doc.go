// Package unix provides the framed transport of package base over Unix domain sockets. Use it
// when client and server run on the same host: it skips the TCP stack and needs no port.
//
// The endpoint is a socket path. The server removes a stale socket file before it listens,
// so a restart after a crash does not fail with "address already in use".
//
// Buffer sizes from SocketConf (WriteBuffer, ReadBuffer) are applied to both ends, the pooled
// server read buffers default to 64 KB.
//
// Example:
//
//	skv serve --transport unix --endpoint /tmp/skv.sock
//	skv kv get session --transport unix --transport-endpoints /tmp/skv.sock
package unix
