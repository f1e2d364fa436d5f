package server

import (
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/maple"
	"github.com/ValentinKolb/sKV/lib/notify"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/dstore"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the shard ID, the store it encapsulates and the adapter
// that handles requests for the store
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create the RPC server
	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
		events:     notify.NewDispatcher(),
	}
}

// RPCServer routes requests of a transport to the shards of this node
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	events     *notify.Dispatcher
	nodeHost   *dragonboat.NodeHost
	closers    []io.Closer
	closeOnce  sync.Once
}

// Handle decodes a request, routes it to the shard and encodes the response.
// It is the handler registered at the transport.
func (s *RPCServer) Handle(shardId uint64, req []byte) []byte {
	start := time.Now()
	var msg common.Message
	var respMsg *common.Message

	// Get appropriate shard
	shard, ok := s.shards.Load(shardId)

	// Case shard does not exist -> error
	if !ok {
		respMsg = common.NewErrorResponse(store.RetCInvalidOperation, fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(store.RetCInternalError, fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		// Let the adapter handle the request
		respMsg = shard.Adapter.Handle(&msg, shard.Store)
	}

	observeRequest(shardId, msg.MsgType, respMsg, time.Since(start))

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(store.RetCInternalError, fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// init creates all shards of the configuration
func (s *RPCServer) init() error {

	// Function to create a new database instance
	dbFactory := func() db.KVDB { return maple.NewMapleDB(nil) }

	// Log keyspace events at debug level
	s.events.Subscribe(func(e notify.Event) {
		Logger.Debugf("keyspace event: %s", e)
	})

	// Create the Dragonboat NodeHost
	if s.config.HasRemoteShard() {
		// Only create the NodeHost if we have remote shards
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nodeHost
	}

	// Configure the timeout for the distributed store
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	// CREATE SHARDS

	/*
		Note: A single RPC Server can have any number of remote and or local shards.
		Each shard can be a store or a lock manager. The following loop creates all
		the shards and stores them for the RPC server.
	*/

	for _, shardConfig := range s.config.Shards {

		// Choose the appropriate adapter based on the shard type
		var adapter IRPCServerAdapter
		switch shardConfig.Type {
		case common.ShardTypeLocalIStore, common.ShardTypeRemoteIStore:
			adapter = NewIStoreServerAdapter()
		case common.ShardTypeLocalILockManager, common.ShardTypeRemoteILockManager:
			adapter = NewLockManagerServerAdapter()
		default:
			return fmt.Errorf("invalid shard type: %s", shardConfig.Type)
		}

		var shardStore store.IStore
		switch shardConfig.Type {

		// Case local store or local lock
		case common.ShardTypeLocalIStore, common.ShardTypeLocalILockManager:
			ls, err := lstore.NewLocalStore(dbFactory, &lstore.Options{
				ShardID:    shardConfig.ShardID,
				JournalDir: s.config.JournalDir,
				Fsync:      s.config.JournalFsync,
				Events:     s.events,
			})
			if err != nil {
				return fmt.Errorf("failed to create local store for shard %d: %w", shardConfig.ShardID, err)
			}
			s.closers = append(s.closers, ls)
			shardStore = ls

		// Case remote store or remote lock
		default:
			if s.nodeHost == nil {
				return fmt.Errorf("node host is nil, cannot create remote store")
			}

			// Start Raft for the shard
			if err := s.nodeHost.StartConcurrentReplica(
				s.config.ClusterMembers,
				false,
				dstore.CreateStateMachineFactory(dbFactory, s.events),
				s.config.ToDragonboatConfig(shardConfig.ShardID),
			); err != nil {
				return fmt.Errorf("failed to start shard %d: %w", shardConfig.ShardID, err)
			}
			shardStore = dstore.NewDistributedStore(s.nodeHost, shardConfig.ShardID, timeout)
		}

		s.shards.Store(shardConfig.ShardID, serverShard{
			Store:   shardStore,
			Adapter: adapter,
		})
		Logger.Infof("created %s for shard %d", shardConfig.Type, shardConfig.ShardID)
	}

	Logger.Infof("sKV setup completed successfully")

	// Configure the transport layer
	s.transport.RegisterHandler(s.Handle)

	return nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *RPCServer) Serve() error {
	// Init logger
	if err := common.InitLoggers(s.config); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	if err := s.init(); err != nil {
		s.Close()
		return err
	}

	// Serve metrics on a dedicated endpoint if configured
	if s.config.MetricsEndpoint != "" {
		go func() {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /metrics", MetricsHandler)
			Logger.Infof("Starting metrics server on %s", s.config.MetricsEndpoint)
			if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
				Logger.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	return s.transport.Listen(s.config)
}

// Close closes the local stores, the node host and the event dispatcher
func (s *RPCServer) Close() {
	s.closeOnce.Do(func() {
		for _, c := range s.closers {
			if err := c.Close(); err != nil {
				Logger.Errorf("failed to close store: %v", err)
			}
		}
		if s.nodeHost != nil {
			s.nodeHost.Close()
		}
		s.events.Close()
	})
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// observeRequest records count, errors and latency of one request
func observeRequest(shardId uint64, msgType common.MessageType, resp *common.Message, d time.Duration) {
	shard := strconv.FormatUint(shardId, 10)
	metrics.GetOrCreateCounter(fmt.Sprintf(`skv_rpc_requests_total{shard=%q,type=%q}`, shard, msgType)).Inc()
	if resp.Err != "" || resp.MsgType == common.MsgTError {
		metrics.GetOrCreateCounter(fmt.Sprintf(`skv_rpc_errors_total{shard=%q,type=%q}`, shard, msgType)).Inc()
	}
	metrics.GetOrCreateHistogram(fmt.Sprintf(`skv_rpc_request_duration_seconds{type=%q}`, msgType)).Update(d.Seconds())
}

// MetricsHandler writes all metrics in the Prometheus text format
func MetricsHandler(w http.ResponseWriter, _ *http.Request) {
	metrics.WritePrometheus(w, true)
}
