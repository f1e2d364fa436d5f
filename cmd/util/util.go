package util

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/http"
	"github.com/ValentinKolb/sKV/rpc/transport/tcp"
	"github.com/ValentinKolb/sKV/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Wrap is the column at which flag help texts are wrapped
const Wrap int = 50

// WrapString breaks text into lines of at most Wrap characters. Words longer than Wrap get a
// line of their own.
func WrapString(text string) string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > Wrap:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ----------------------------------------------------------------------------
// Client flags and configuration
// ----------------------------------------------------------------------------

// SetupRPCClientFlags adds the connection flags shared by all client commands
func SetupRPCClientFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.Int("timeout", 10, WrapString("Timeout of a single request in seconds"))
	f.String("transport-endpoints", "http://localhost:8080", WrapString("Comma-separated server addresses. Requests are spread round robin over all of them"))
	f.Int("transport-conn-per-endpoint", 1, WrapString("Connections opened per endpoint (tcp and unix multiplex requests over them)"))
	f.Int("transport-retries", 3, WrapString("Attempts per request before it fails"))
	f.Int("transport-write-buffer", 512, WrapString("Socket write buffer in KB (ignored for http)"))
	f.Int("transport-read-buffer", 512, WrapString("Socket read buffer in KB (ignored for http)"))
	f.Bool("transport-tcp-nodelay", true, WrapString("Enable TCP_NODELAY (only for tcp)"))
	f.Int("transport-tcp-keepalive", 0, WrapString("Keepalive interval in seconds, 0 disables keepalive (only for tcp)"))
	f.Int("transport-tcp-linger", -1, WrapString("Linger time in seconds, negative keeps the system default (only for tcp)"))
}

// InitClientConfig loads .env and .env.local and maps SKV_* environment variables onto the
// flags, e.g. SKV_TRANSPORT_ENDPOINTS for --transport-endpoints
func InitClientConfig() {
	for _, file := range []string{".env", ".env.local"} {
		_ = godotenv.Load(file)
	}
	viper.SetEnvPrefix("skv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// GetClientConfig builds the client configuration from the bound flags
func GetClientConfig() *common.ClientConfig {
	var endpoints []string
	for _, e := range strings.Split(viper.GetString("transport-endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			Endpoints:              endpoints,
			RetryCount:             viper.GetInt("transport-retries"),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
			},
		},
	}
}

// GetShardID returns the value of --shard
func GetShardID() uint64 {
	return uint64(viper.GetInt("shard"))
}

// BindCommandFlags makes the flags of cmd visible to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// ----------------------------------------------------------------------------
// Serializer and transport selection
// ----------------------------------------------------------------------------

var serializers = map[string]func() serializer.IRPCSerializer{
	"binary":  serializer.NewBinarySerializer,
	"msgpack": serializer.NewMsgpackSerializer,
	"cbor":    serializer.NewCBORSerializer,
	"json":    serializer.NewJSONSerializer,
	"gob":     serializer.NewGOBSerializer,
}

type transportFactory struct {
	client func() transport.IRPCClientTransport
	server func() transport.IRPCServerTransport
}

var transports = map[string]transportFactory{
	"http": {http.NewHttpClientTransport, http.NewHttpServerTransport},
	"tcp":  {tcp.NewTCPClientTransport, tcp.NewTCPServerTransport},
	"unix": {unix.NewUnixClientTransport, unix.NewUnixServerTransport},
}

// GetSerializer returns the serializer selected by --serializer
func GetSerializer() (serializer.IRPCSerializer, error) {
	name := viper.GetString("serializer")
	newSerializer, ok := serializers[name]
	if !ok {
		return nil, fmt.Errorf("invalid serializer %s (expected one of: %s)", name, choices(serializers))
	}
	return newSerializer(), nil
}

// GetTransport returns the client transport selected by --transport
func GetTransport() (transport.IRPCClientTransport, error) {
	f, err := selectedTransport()
	if err != nil {
		return nil, err
	}
	return f.client(), nil
}

// GetServerTransport returns the server transport selected by --transport
func GetServerTransport() (transport.IRPCServerTransport, error) {
	f, err := selectedTransport()
	if err != nil {
		return nil, err
	}
	return f.server(), nil
}

func selectedTransport() (transportFactory, error) {
	name := viper.GetString("transport")
	f, ok := transports[name]
	if !ok {
		return transportFactory{}, fmt.Errorf("invalid transport %s (expected one of: %s)", name, choices(transports))
	}
	return f, nil
}

func choices[V any](m map[string]V) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// ----------------------------------------------------------------------------
// Client setup
// ----------------------------------------------------------------------------

// ClientParts bundles the arguments of the rpc client constructors
type ClientParts struct {
	ShardID    uint64
	Config     common.ClientConfig
	Transport  transport.IRPCClientTransport
	Serializer serializer.IRPCSerializer
}

// NewClientParts binds the flags of cmd and builds config, transport and serializer from them.
// It is meant to be called from a PersistentPreRunE.
func NewClientParts(cmd *cobra.Command) (ClientParts, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return ClientParts{}, err
	}
	s, err := GetSerializer()
	if err != nil {
		return ClientParts{}, err
	}
	t, err := GetTransport()
	if err != nil {
		return ClientParts{}, err
	}
	return ClientParts{
		ShardID:    GetShardID(),
		Config:     *GetClientConfig(),
		Transport:  t,
		Serializer: s,
	}, nil
}
