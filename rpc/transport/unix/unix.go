package unix

import (
	"fmt"
	"net"
	"os"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/base"
)

const defaultBufferSize = 64 * 1024 // pooled server read buffers

// NewUnixClientTransport returns the framed client transport over Unix domain sockets
func NewUnixClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(clientConnector{})
}

// NewUnixServerTransport returns the framed server transport over Unix domain sockets
func NewUnixServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(serverConnector{}, defaultBufferSize)
}

// --------------------------------------------------------------------------
// Connectors (docu see base.IClientConnector and base.IServerConnector)
// --------------------------------------------------------------------------

type clientConnector struct{}

func (clientConnector) GetName() string { return "unix" }

func (clientConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}

func (clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return base.ApplySocketBuffers(conn, config.Transport.SocketConf)
}

type serverConnector struct{}

func (serverConnector) GetName() string { return "unix" }

// Listen removes a socket file left behind by a previous process before listening
func (serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	path := config.Transport.Endpoint
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale socket %s: %v", path, err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %v", path, err)
	}
	return listener, nil
}

func (serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	return base.ApplySocketBuffers(conn, config.Transport.SocketConf)
}
