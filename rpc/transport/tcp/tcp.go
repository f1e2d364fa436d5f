package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/base"
)

const (
	defaultBufferSize = 512 * 1024 // pooled server read buffers
	dialTimeout       = 5 * time.Second
)

// NewTCPClientTransport returns the framed client transport over TCP
func NewTCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(clientConnector{})
}

// NewTCPServerTransport returns the framed server transport over TCP
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(serverConnector{}, defaultBufferSize)
}

// --------------------------------------------------------------------------
// Connectors (docu see base.IClientConnector and base.IServerConnector)
// --------------------------------------------------------------------------

type clientConnector struct{}

func (clientConnector) GetName() string { return "tcp" }

func (clientConnector) Connect(endpoint string) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, dialTimeout)
}

func (clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return applySocketOptions(conn, config.Transport.SocketConf, config.Transport.TCPConf)
}

type serverConnector struct{}

func (serverConnector) GetName() string { return "tcp" }

func (serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %v", config.Transport.Endpoint, err)
	}
	return listener, nil
}

func (serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	return applySocketOptions(conn, config.Transport.SocketConf, config.Transport.TCPConf)
}

// --------------------------------------------------------------------------
// Socket options
// --------------------------------------------------------------------------

// applySocketOptions sets buffers, TCP_NODELAY, keepalive and linger on a TCP connection.
// A keepalive of 0 keeps keepalive off, a negative linger keeps the system default.
func applySocketOptions(conn net.Conn, socket common.SocketConf, opts common.TCPConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := base.ApplySocketBuffers(conn, socket); err != nil {
		return err
	}
	if err := tcpConn.SetNoDelay(opts.TCPNoDelay); err != nil {
		return fmt.Errorf("set nodelay: %w", err)
	}
	if opts.TCPKeepAliveSec > 0 {
		err := tcpConn.SetKeepAliveConfig(net.KeepAliveConfig{
			Enable:   true,
			Idle:     time.Duration(opts.TCPKeepAliveSec) * time.Second,
			Interval: time.Duration(opts.TCPKeepAliveSec) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("set keepalive: %w", err)
		}
	}
	if opts.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(opts.TCPLingerSec); err != nil {
			return fmt.Errorf("set linger: %w", err)
		}
	}
	return nil
}
