package client

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// rpcClientAdapter holds what RPCStore and the lock manager client share: the target shard and
// the way requests are encoded and carried
type rpcClientAdapter struct {
	shardId    uint64
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// connect connects the transport and returns the adapter for shardId
func connect(shardId uint64, config common.ClientConfig, t transport.IRPCClientTransport, s serializer.IRPCSerializer) (rpcClientAdapter, error) {
	if err := t.Connect(config); err != nil {
		return rpcClientAdapter{}, err
	}
	return rpcClientAdapter{shardId: shardId, transport: t, serializer: s}, nil
}

// Close closes the transport of the client
func (a *rpcClientAdapter) Close() error {
	return a.transport.Close()
}

// invoke sends req and returns the response. Every error is a *store.Error: errors reported by
// the server keep their code, local failures (encoding, transport) are RetCInternalError.
// A response of another type than the request is rejected.
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	start := time.Now()
	resp, err := a.roundTrip(req)
	metrics.GetOrCreateHistogram(fmt.Sprintf(`skv_rpc_client_request_duration_seconds{type=%q}`, req.MsgType)).UpdateDuration(start)
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(`skv_rpc_client_errors_total{type=%q}`, req.MsgType)).Inc()
		return nil, err
	}
	return resp, nil
}

func (a *rpcClientAdapter) roundTrip(req *common.Message) (*common.Message, error) {
	raw, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("failed to encode request: %s", err))
	}

	raw, err = a.transport.Send(a.shardId, raw)
	if err != nil {
		return nil, store.NewError(store.RetCInternalError, err.Error())
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(raw, resp); err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("failed to decode response: %s", err))
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}
	if resp.MsgType != req.MsgType {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("unexpected response type %s for a %s request", resp.MsgType, req.MsgType))
	}
	return resp, nil
}
