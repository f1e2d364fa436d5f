package server

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

// iStoreServerAdapterImpl executes command vectors on the store of a shard
type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewErrorResponse(store.RetCInternalError, "handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTKVExec:
		if len(req.Args) == 0 {
			return common.NewExecResponse(nil, store.NewError(store.RetCUnknownCommand, "empty command"))
		}
		reply, err := s.Exec(req.Args)
		if err != nil {
			return common.NewExecResponse(nil, err)
		}
		data, err := reply.MarshalBinary()
		return common.NewExecResponse(data, err)
	case common.MsgTKVInfo:
		info, err := s.Info()
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		data, err := json.Marshal(info)
		return common.NewInfoResponse(data, err)
	default:
		return common.NewErrorResponse(
			store.RetCUnsupportedOperation,
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
