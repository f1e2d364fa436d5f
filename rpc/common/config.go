package common

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// Dragonboat configuration
// --------------------------------------------------------------------------

// Election and heartbeat timeouts in multiples of RTTMillisecond. Elections need to take
// clearly longer than heartbeats, the raft paper suggests a factor of ten.
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig returns the raft config of one shard of this node
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// Transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds socket buffer sizes (bytes, 0 = system default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 = disabled
	TCPLingerSec    int // < 0 = system default
}

// ServerTransportConfig configures the listening side of a transport
type ServerTransportConfig struct {
	// Endpoint is the listen address (host:port for http and tcp, socket path for unix)
	Endpoint string
	// WorkersPerConn limits concurrent requests per socket connection
	WorkersPerConn int
	// BufferSize is the size of pooled request buffers (bytes)
	BufferSize int
	SocketConf
	TCPConf
}

// ClientTransportConfig configures the dialing side of a transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeLocalIStore        ServerShardType = "lstore"
	ShardTypeRemoteIStore       ServerShardType = "dstore"
	ShardTypeLocalILockManager  ServerShardType = "lockmgr(lstore)"
	ShardTypeRemoteILockManager ServerShardType = "lockmgr(dstore)"
)

// ParseShardType converts the textual shard type used on the command line
func ParseShardType(s string) (ServerShardType, error) {
	switch t := ServerShardType(strings.TrimSpace(s)); t {
	case ShardTypeLocalIStore, ShardTypeRemoteIStore, ShardTypeLocalILockManager, ShardTypeRemoteILockManager:
		return t, nil
	default:
		return "", fmt.Errorf("invalid shard type: %s (expected one of: dstore, lstore, lockmgr(dstore), lockmgr(lstore))", s)
	}
}

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type selects store and adapter of the shard
	Type ServerShardType
}

// ServerConfig holds all configuration parameters of a server node.
type ServerConfig struct {
	// Shards served by this node
	Shards []ServerShard

	// Dragonboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// remote kvStore parameters
	TimeoutSecond int64

	// Local store journal (empty = in-memory only)
	JournalDir   string
	JournalFsync bool

	// Transport settings
	Transport ServerTransportConfig

	// Metrics endpoint (empty = disabled, http transport always serves /metrics)
	MetricsEndpoint string

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// HasRemoteShard checks if the configuration contains any remote shards
func (c *ServerConfig) HasRemoteShard() bool {
	for _, shard := range c.Shards {
		if shard.Type == ShardTypeRemoteIStore || shard.Type == ShardTypeRemoteILockManager {
			return true
		}
	}
	return false
}

// String renders the configuration as the table printed on server start
func (c *ServerConfig) String() string {
	var p configPrinter

	p.section("RPC Server")
	p.field("Endpoint", c.Transport.Endpoint)
	p.field("Workers Per Conn", c.Transport.WorkersPerConn)
	p.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		p.field("Metrics", c.MetricsEndpoint)
	}

	p.section("Logging")
	p.field("Log Level", c.LogLevel)
	p.field("Log Format", c.LogFormat)

	p.section("Shards")
	for _, shard := range c.Shards {
		p.field(strconv.FormatUint(shard.ShardID, 10), shard.Type)
	}

	if c.JournalDir != "" {
		p.section("Journal")
		p.field("Directory", c.JournalDir)
		p.field("Fsync", c.JournalFsync)
	}

	if !c.HasRemoteShard() {
		return p.String()
	}

	p.section("Raft")
	p.field("Node ID", c.ReplicaID)
	p.field("Raft Address", c.ClusterMembers[c.ReplicaID])
	p.field("Round Trip Time", fmt.Sprintf("%d ms", c.RTTMillisecond))
	p.field("Election", fmt.Sprintf("%d ms", c.RTTMillisecond*electionRTTFactor))
	p.field("Heartbeat", fmt.Sprintf("%d ms", c.RTTMillisecond*heartbeatRTTFactor))
	p.field("Snapshot Entries", c.SnapshotEntries)
	p.field("Compaction Overhead", c.CompactionOverhead)
	p.field("Data Directory", c.DataDir)

	p.section("Cluster")
	ids := make([]uint64, 0, len(c.ClusterMembers))
	for id := range c.ClusterMembers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p.field(fmt.Sprintf("Node %d", id), c.ClusterMembers[id])
	}
	return p.String()
}

// configPrinter renders sections of aligned name/value pairs
type configPrinter struct {
	strings.Builder
}

func (p *configPrinter) section(title string) {
	fmt.Fprintf(p, "\n%s\n", strings.ToUpper(title))
}

func (p *configPrinter) field(name string, value any) {
	fmt.Fprintf(p, "  %-24s: %v\n", name, value)
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String renders the configuration for verbose client output
func (c *ClientConfig) String() string {
	var p configPrinter
	p.section("Client")
	p.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	p.field("Retry Count", c.Transport.RetryCount)
	p.field("Connections Per Endpoint", max(1, c.Transport.ConnectionsPerEndpoint))

	p.section("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		p.field(strconv.Itoa(i), endpoint)
	}
	return p.String()
}
