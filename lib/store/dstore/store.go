package dstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/command"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
)

// maxAttempts bounds how often a proposal or read is retried while the shard reports
// dragonboat.ErrSystemBusy
const maxAttempts = 5

var log = logger.GetLogger("store")

// storeImpl is the store.Executor of a raft shard. Write commands are proposed through the log,
// everything else is a linearizable read of the local replica.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	session *client.Session
	timeout time.Duration
	clock   func() int64
}

// NewDistributedStore returns the store of a raft shard that is already started on nh.
// Every command carries the wall clock of the proposing node in unix milliseconds, replicas
// evaluate expirations against that time so they all reach the same state.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) store.IStore {
	return store.Wrap(&storeImpl{
		nh:      nh,
		shardID: shardID,
		session: nh.GetNoOPSession(shardID),
		timeout: timeout,
		clock:   func() int64 { return time.Now().UnixMilli() },
	})
}

// --------------------------------------------------------------------------
// Executor Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Exec(argv [][]byte) (command.Reply, error) {
	now := s.clock()
	if len(argv) > 0 {
		if spec, ok := command.Lookup(string(argv[0])); ok && spec.IsWrite() {
			return s.propose(internal.Command{Now: now, Argv: argv})
		}
	}
	return query[command.Reply](s, internal.Query{Type: internal.QueryTExec, Now: now, Argv: argv}, false)
}

// Info may lag behind the leader, statistics do not need a linearizable read
func (s *storeImpl) Info() (command.Info, error) {
	return query[command.Info](s, internal.Query{Type: internal.QueryTInfo}, true)
}

// --------------------------------------------------------------------------
// Raft access
// --------------------------------------------------------------------------

// retryBusy runs op until it succeeds, fails with something else than ErrSystemBusy or
// maxAttempts is reached
func (s *storeImpl) retryBusy(name string, op func() error) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op()
		if !errors.Is(err, dragonboat.ErrSystemBusy) {
			return err
		}
		log.Infof("%s on shard %d: system busy (%d/%d)", name, s.shardID, attempt, maxAttempts)
		time.Sleep(s.timeout / 10)
	}
	return store.NewError(store.RetCInternalError, fmt.Sprintf("%s: shard %d stayed busy", name, s.shardID))
}

// propose replicates cmd and decodes the reply produced by the state machine
func (s *storeImpl) propose(cmd internal.Command) (command.Reply, error) {
	var res struct {
		code uint64
		data []byte
	}
	err := s.retryBusy("propose", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		r, err := s.nh.SyncPropose(ctx, s.session, cmd.Serialize())
		res.code, res.data = r.Value, r.Data
		return err
	})
	if err != nil {
		return command.Reply{}, asStoreError(err)
	}

	if res.code != uint64(store.RetCSuccess) {
		return command.Reply{}, store.NewError(store.RetCode(res.code), string(res.data))
	}
	var reply command.Reply
	if err := reply.UnmarshalBinary(res.data); err != nil {
		return command.Reply{}, store.NewError(store.RetCInternalError, err.Error())
	}
	return reply, nil
}

// query reads from the state machine. stale selects StaleRead (local state, no round trip to
// the leader) instead of SyncRead.
func query[R any](s *storeImpl, q internal.Query, stale bool) (R, error) {
	var result any
	err := s.retryBusy("read", func() error {
		var err error
		if stale {
			result, err = s.nh.StaleRead(s.shardID, q)
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		result, err = s.nh.SyncRead(ctx, s.shardID, q)
		return err
	})

	var zero R
	if err != nil {
		return zero, asStoreError(err)
	}
	typed, ok := result.(R)
	if !ok {
		return zero, store.NewError(store.RetCInternalError, fmt.Sprintf("unexpected type: received %T, expected %T", result, zero))
	}
	return typed, nil
}

// asStoreError keeps *store.Error values and wraps everything else as an internal error
func asStoreError(err error) error {
	var se *store.Error
	if errors.As(err, &se) {
		return se
	}
	return store.NewError(store.RetCInternalError, err.Error())
}
