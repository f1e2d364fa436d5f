package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

var (
	errTransportClosed  = errors.New("transport is closed")
	errConnectionBroken = errors.New("connection lost before the response arrived")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect dials a single connection to endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection is one multiplexed connection to an endpoint.
// Requests are written under writeMu and wait on their own channel in pending, a single reader
// goroutine per connection delivers the responses. When the connection breaks, every pending
// request fails immediately and the reader dials a new connection.
type clientConnection struct {
	endpoint string
	parent   *clientTransport
	pending  *xsync.MapOf[uint64, chan responseResult]
	stopCh   chan struct{} // closed when the transport (of this Connect call) stops

	mu      sync.RWMutex // guards conn
	conn    net.Conn     // nil while (re)connecting
	writeMu sync.Mutex   // serializes frame writes
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	timeout       time.Duration
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex atomic.Uint64
	nextRequestID atomic.Uint64
	stopCh        chan struct{}
	stopped       atomic.Bool

	reconnects *metrics.Counter
	retries    *metrics.Counter
	timeouts   *metrics.Counter
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	name := connector.GetName()
	return &clientTransport{
		connector:  connector,
		reconnects: metrics.GetOrCreateCounter(fmt.Sprintf(`skv_transport_client_reconnects_total{transport=%q}`, name)),
		retries:    metrics.GetOrCreateCounter(fmt.Sprintf(`skv_transport_client_retries_total{transport=%q}`, name)),
		timeouts:   metrics.GetOrCreateCounter(fmt.Sprintf(`skv_transport_client_timeouts_total{transport=%q}`, name)),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// A transport can be connected again, drop the old connections first
	if t.stopCh != nil {
		t.stop()
	}

	t.config = config
	t.timeout = time.Duration(config.TimeoutSecond) * time.Second
	t.stopCh = make(chan struct{})
	t.stopped.Store(false)

	connectionsPerEP := max(config.Transport.ConnectionsPerEndpoint, 1)
	total := len(config.Transport.Endpoints) * connectionsPerEP
	connections := make([]*clientConnection, 0, total)

	for _, endpoint := range config.Transport.Endpoints {
		for i := 0; i < connectionsPerEP; i++ {
			c := &clientConnection{
				endpoint: endpoint,
				parent:   t,
				pending:  xsync.NewMapOf[uint64, chan responseResult](),
				stopCh:   t.stopCh,
			}

			conn, err := t.dial(endpoint)
			if err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			c.conn = conn
			connections = append(connections, c)

			go c.readLoop()
		}
	}

	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("Connected %d out of %d connections to %d endpoints using %s transport",
		len(connections), total, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	if t.stopped.Load() {
		return nil, errTransportClosed
	}

	// We always try at least once
	attempts := max(t.config.Transport.RetryCount, 1)

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < attempts; i++ {
		c := t.nextConnection()
		if c == nil {
			return nil, fmt.Errorf("no active connections available")
		}

		// every attempt has its own id, a late response of a failed attempt is dropped
		data, err := c.roundTrip(shardId, t.nextRequestID.Add(1), req)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, errTransportClosed) {
			return nil, err
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, attempts, err)

		if i < attempts-1 {
			t.retries.Inc()
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
}

func (t *clientTransport) Close() error {
	if t.stopCh != nil {
		t.stop()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial connects and upgrades one connection
func (t *clientTransport) dial(endpoint string) (net.Conn, error) {
	conn, err := t.connector.Connect(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", endpoint, err)
	}
	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %v", endpoint, err)
	}
	return conn, nil
}

// stop closes all connections, the reader goroutines exit on the resulting read errors
func (t *clientTransport) stop() {
	if t.stopped.Swap(true) {
		return
	}
	close(t.stopCh)

	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		c.setConn(nil)
		c.failPending(errTransportClosed)
	}
}

// nextConnection selects the next connection via Round Robin
func (t *clientTransport) nextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	switch len(t.connections) {
	case 0:
		return nil
	case 1:
		return t.connections[0]
	default:
		return t.connections[t.nextConnIndex.Add(1)%uint64(len(t.connections))]
	}
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

func (c *clientConnection) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// currentConn returns the live connection or nil while reconnecting
func (c *clientConnection) currentConn() net.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// setConn replaces the connection and closes the previous one
func (c *clientConnection) setConn(conn net.Conn) {
	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
}

// roundTrip writes one request and waits for its response
func (c *clientConnection) roundTrip(shardID, requestID uint64, req []byte) ([]byte, error) {
	conn := c.currentConn()
	if conn == nil {
		return nil, fmt.Errorf("connection to %s is not established", c.endpoint)
	}

	respCh := make(chan responseResult, 1)
	c.pending.Store(requestID, respCh)
	defer c.pending.Delete(requestID)

	timeout := c.parent.timeout

	c.writeMu.Lock()
	if timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err := writeFrame(conn, shardID, requestID, req)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		c.parent.timeouts.Inc()
		return nil, fmt.Errorf("request timed out after %s", timeout)
	}
}

// failPending fails every request waiting on this connection
func (c *clientConnection) failPending(err error) {
	c.pending.Range(func(id uint64, ch chan responseResult) bool {
		select {
		case ch <- responseResult{err: err}:
		default:
		}
		return true
	})
}

// readLoop delivers responses to waiting requests until the transport stops.
// A broken connection fails all pending requests and is replaced by a new one.
func (c *clientConnection) readLoop() {
	for {
		conn := c.currentConn()
		if conn == nil {
			if !c.redial() {
				return
			}
			continue
		}

		// The server closes idle connections, so reads have no deadline here.
		// Timeouts of single requests are enforced by roundTrip.
		h, data, err := readFrame(conn, nil)
		if err != nil {
			if c.stopped() {
				return
			}
			Logger.Debugf("Connection to %s broken: %v", c.endpoint, err)
			c.failPending(fmt.Errorf("%w: %v", errConnectionBroken, err))
			c.setConn(nil)
			continue
		}

		if respCh, found := c.pending.Load(h.requestID); found {
			select {
			case respCh <- responseResult{data: data}:
			default: // already failed
			}
		} else {
			// the request timed out before the response arrived
			Logger.Warningf("Received response for unknown request ID %d with shard ID %d", h.requestID, h.shardID)
		}
	}
}

// redial dials until a connection is established or the transport stops.
// It reports false if the transport stopped.
func (c *clientConnection) redial() bool {
	backoff := 50 * time.Millisecond
	for {
		if c.stopped() {
			return false
		}
		conn, err := c.parent.dial(c.endpoint)
		if err == nil {
			c.parent.reconnects.Inc()
			c.setConn(conn)
			Logger.Infof("Reconnected to %s", c.endpoint)
			return true
		}
		Logger.Warningf("Failed to reconnect to %s: %v", c.endpoint, err)

		select {
		case <-c.stopCh:
			return false
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 5*time.Second)
	}
}
