// Package base implements the framed socket transport shared by the tcp and unix transports.
// The medium specific parts (dialing, listening, socket options) are plugged in through
// IClientConnector and IServerConnector.
//
// Wire format:
//
//	shardID uint64 | requestID uint64 | length uint32 | payload [length]byte
//
// Integers are big endian. A response echoes the shardID and requestID of its request. Payloads
// larger than 576 MiB (the 512 MiB value limit plus room for key, command and serializer) are
// rejected on both sides before anything is allocated.
//
// Client:
//
//   - Config.Transport.ConnectionsPerEndpoint connections are opened per endpoint and used
//     round robin. Each connection multiplexes any number of requests, a single reader
//     goroutine per connection routes responses to the waiting callers by request id.
//   - When a connection breaks, every request waiting on it fails at once and the reader dials
//     a replacement with exponential backoff (50ms up to 5s). Endpoints that were down during
//     Connect are skipped, Connect only fails if no endpoint could be reached.
//   - Send retries failed requests up to RetryCount times on the next connection, each attempt
//     with a fresh request id so a late response of an earlier attempt is dropped.
//   - skv_transport_client_{reconnects,retries,timeouts}_total count the failure paths.
//
// Server:
//
//   - Every accepted connection gets its own reader. Frames are handled by up to
//     WorkersPerConn goroutines per connection, reading pauses while all of them are busy.
//   - Read buffers of BufferSize bytes come from a sync.Pool; larger frames are allocated.
//   - A connection without a request for TimeoutSecond seconds is closed, clients reconnect
//     transparently.
//   - skv_transport_server_connections_total and skv_transport_server_open_connections track
//     the connections.
//
// Thread-safety: clientTransport.Send may be called concurrently. Writes to one connection are
// serialized on both sides.
package base
