// Package http carries RPC requests as HTTP POST bodies. It is the default transport: slower
// than tcp for small requests, but it passes proxies and can be inspected with standard tools.
//
// Routes:
//
//	POST /{shardId}   body: serialized request, response: serialized response
//	GET  /metrics     Prometheus text format of all process metrics
//
// The shard id is the decimal path segment. Request bodies above 576 MiB are refused with 413.
// Errors of the store never change the status code, they travel inside the serialized response;
// a non 200 status always means the request did not reach the RPC server.
//
// The client spreads requests round robin over all endpoints and moves on to the next endpoint
// when an attempt fails, up to RetryCount attempts. With the debug log level the server logs
// method, path, status and duration of every request.
//
// Example:
//
//	curl -s localhost:8080/metrics | grep skv_rpc_requests_total
//
// Thread-safety: Send may be called concurrently, Connect and Close may not.
package http
