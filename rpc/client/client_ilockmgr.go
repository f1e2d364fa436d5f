package client

import (
	"time"

	"github.com/ValentinKolb/sKV/lib/lockmgr"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
)

// NewRPCLockMgr connects the transport and returns the lock manager of the remote shard shardId
func NewRPCLockMgr(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (lockmgr.ILockManager, error) {
	adapter, err := connect(shardId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcLockMgr{adapter}, nil
}

type rpcLockMgr struct {
	rpcClientAdapter
}

// The lease is sent in whole milliseconds, shorter leases round down to 0 (no lease).
func (l *rpcLockMgr) AcquireLock(key string, timeout time.Duration) (bool, []byte, error) {
	resp, err := l.invoke(common.NewAcquireRequest(key, uint64(timeout.Milliseconds())))
	if err != nil {
		return false, nil, err
	}
	return resp.Ok, resp.Value, nil
}

func (l *rpcLockMgr) ReleaseLock(key string, ownerID []byte) (bool, error) {
	resp, err := l.invoke(common.NewReleaseRequest(key, ownerID))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}
