// Package transport contains the contracts between the RPC layer and the byte moving code below
// it. A transport knows nothing about commands or serializers: it carries an opaque request for
// a shard id to a server and brings back an opaque response.
//
// Implementations:
//
//   - http: one POST per request, the shard id travels in the URL. Easy to debug with curl and
//     the only transport that also serves /metrics on the RPC port.
//   - tcp: framed and multiplexed over a small pool of long lived connections.
//   - unix: the tcp framing over a Unix domain socket, for clients on the same host.
//
// tcp and unix share their framing, pooling and reconnect logic through package base.
//
// Contract:
//
//   - ServerHandleFunc never fails. Errors are encoded into the response by the RPC server, the
//     transport only reports failures of its own (broken connections, timeouts, oversized
//     frames) through the error of Send.
//   - Send may be called from many goroutines at once. Responses are matched to their request,
//     not to the order in which requests were sent.
//   - A request is sent at most RetryCount times. Retried commands are not deduplicated by the
//     server, so a retried INCR that actually reached the server is applied twice.
package transport
