package client

import (
	"encoding/json"

	"github.com/ValentinKolb/sKV/lib/command"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
)

// RPCStore is a store.IStore whose commands are executed by a remote shard
type RPCStore struct {
	store.IStore
	rpc *rpcExecutor
}

// NewRPCStore connects the transport and returns the store of the remote shard shardId
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCStore, error) {
	adapter, err := connect(shardId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	exec := &rpcExecutor{adapter}
	return &RPCStore{IStore: store.Wrap(exec), rpc: exec}, nil
}

// Close closes the transport
func (s *RPCStore) Close() error {
	return s.rpc.Close()
}

// rpcExecutor implements store.Executor over the wire
type rpcExecutor struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcExecutor) Exec(argv [][]byte) (command.Reply, error) {
	resp, err := i.invoke(common.NewExecRequest(argv))
	if err != nil {
		return command.Reply{}, err
	}

	var reply command.Reply
	if err := reply.UnmarshalBinary(resp.Value); err != nil {
		return command.Reply{}, store.NewError(store.RetCInternalError, err.Error())
	}
	return reply, nil
}

func (i *rpcExecutor) Info() (command.Info, error) {
	resp, err := i.invoke(common.NewInfoRequest())
	if err != nil {
		return command.Info{}, err
	}

	var info command.Info
	if err := json.Unmarshal(resp.Value, &info); err != nil {
		return command.Info{}, store.NewError(store.RetCInternalError, err.Error())
	}
	return info, nil
}
