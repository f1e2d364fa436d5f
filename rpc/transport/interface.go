package transport

import (
	"github.com/ValentinKolb/sKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc turns the raw request for a shard into the raw response.
// It is called concurrently, once per received request.
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport receives requests and hands them to the registered handler
type IRPCServerTransport interface {
	// RegisterHandler sets the handler, it must be called before Listen
	RegisterHandler(handler ServerHandleFunc)
	// Listen serves config.Transport.Endpoint and blocks until the listener fails
	Listen(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport carries requests to the endpoints of config.Transport.Endpoints.
// Thread-safety: Send is safe for concurrent use, Connect and Close are not.
type IRPCClientTransport interface {
	// Connect opens the connections, it fails only if no endpoint is reachable
	Connect(config common.ClientConfig) error
	// Send delivers req to the shard and waits for the response
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close releases all connections, pending requests fail
	Close() error
}
