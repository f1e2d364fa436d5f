package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector is the medium specific part of a server transport
type IServerConnector interface {
	// Listen opens the listener on config.Transport.Endpoint
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies socket options to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Server Transport
// -----------------------------------------------------------

// serverTransport accepts connections and serves the frames of every connection with a bounded
// number of workers. Responses may leave a connection in a different order than the requests
// came in, the client matches them by request id.
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	config     common.ServerConfig
	bufferSize int
	bufferPool sync.Pool
	workers    int

	acceptedConns *metrics.Counter
	rejectedConns *metrics.Counter
	openGauge     *metrics.Gauge
	closedConns   *metrics.Counter
}

// NewBaseServerTransport creates a server transport for the given connector.
// defaultBufferSize is the size of the pooled read buffers unless the config sets one, frames
// larger than the buffer are read into a fresh allocation.
func NewBaseServerTransport(connector IServerConnector, defaultBufferSize int) transport.IRPCServerTransport {
	name := connector.GetName()
	t := &serverTransport{
		connector:     connector,
		bufferSize:    defaultBufferSize,
		acceptedConns: metrics.GetOrCreateCounter(fmt.Sprintf(`skv_transport_server_connections_total{transport=%q}`, name)),
		rejectedConns: metrics.GetOrCreateCounter(fmt.Sprintf(`skv_transport_server_rejected_connections_total{transport=%q}`, name)),
		closedConns:   metrics.GetOrCreateCounter(fmt.Sprintf(`skv_transport_server_closed_connections_total{transport=%q}`, name)),
	}
	t.openGauge = metrics.GetOrCreateGauge(fmt.Sprintf(`skv_transport_server_open_connections{transport=%q}`, name), func() float64 {
		return float64(t.acceptedConns.Get()) - float64(t.closedConns.Get())
	})
	return t
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	t.config = config
	if config.Transport.BufferSize > 0 {
		t.bufferSize = config.Transport.BufferSize
	}
	size := t.bufferSize
	t.bufferPool.New = func() any { return make([]byte, size) }
	t.workers = max(config.Transport.WorkersPerConn, 1)

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	defer listener.Close()

	Logger.Infof("%s server listening on %s (%d workers per connection, %d byte buffers)",
		t.connector.GetName(), config.Transport.Endpoint, t.workers, size)

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Errorf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
			t.rejectedConns.Inc()
			_ = conn.Close()
			continue
		}

		t.acceptedConns.Inc()
		go t.serve(conn)
	}
}

// --------------------------------------------------------------------------
// Connection Handling
// --------------------------------------------------------------------------

// serve reads frames until the connection fails or stays idle longer than the server timeout.
// Every frame is handled by a worker, at most t.workers run at once per connection and reading
// pauses while all of them are busy.
func (t *serverTransport) serve(conn net.Conn) {
	var (
		wg      sync.WaitGroup
		writeMu sync.Mutex
		slots   = make(chan struct{}, t.workers)
		timeout = time.Duration(t.config.TimeoutSecond) * time.Second
	)

	defer func() {
		wg.Wait()
		_ = conn.Close()
		t.closedConns.Inc()
	}()

	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		buf := t.bufferPool.Get().([]byte)
		h, data, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				Logger.Debugf("Connection %s closed by client", conn.RemoteAddr())
			case errors.As(err, &netErr) && netErr.Timeout():
				Logger.Debugf("Connection %s idle for %s, closing", conn.RemoteAddr(), timeout)
			default:
				Logger.Errorf("Failed to read frame from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		slots <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				t.bufferPool.Put(buf)
				<-slots
				wg.Done()
			}()
			t.respond(conn, &writeMu, timeout, h, data)
		}()
	}
}

// respond runs the handler and writes the response frame under writeMu
func (t *serverTransport) respond(conn net.Conn, writeMu *sync.Mutex, timeout time.Duration, h frameHeader, data []byte) {
	resp := t.handler(h.shardID, data)

	writeMu.Lock()
	defer writeMu.Unlock()

	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			Logger.Errorf("Failed to set write deadline: %v", err)
			return
		}
	}
	if err := writeFrame(conn, h.shardID, h.requestID, resp); err != nil {
		Logger.Errorf("Failed to write response for request %d: %v", h.requestID, err)
	}
}
