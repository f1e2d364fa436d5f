package server

import (
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

// IRPCServerAdapter executes request messages against the store of a shard.
// Handle never returns nil: failures are reported as a MsgTError response carrying a store
// return code, so the client can rebuild the error.
type IRPCServerAdapter interface {
	Handle(req *common.Message, store store.IStore) (resp *common.Message)
}
