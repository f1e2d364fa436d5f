package lstore

import (
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/lib/command"
	"github.com/ValentinKolb/sKV/lib/notify"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// Options configure a local store
type Options struct {
	// ShardID is the database id, it names the journal file and tags keyspace events.
	ShardID uint64
	// JournalDir enables the append-only journal in this directory ("" = no journal).
	JournalDir string
	// Fsync syncs the journal to disk after every write command.
	Fsync bool
	// Events receives keyspace events, nil discards them.
	Events notify.Sink
	// Clock returns the current time in unix milliseconds, defaults to the wall clock.
	Clock func() int64
}

// Store is a local, single-node store.IStore
type Store struct {
	store.IStore
	db      *command.DB
	clock   func() int64
	journal *journal
	writeMu sync.Mutex // keeps journal order equal to execution order
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// If a journal directory is configured, the journal is replayed before the store is returned.
func NewLocalStore(factory store.DBFactory, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() int64 { return time.Now().UnixMilli() }
	}

	s := &Store{
		db:    command.NewDB(opts.ShardID, factory(), opts.Events),
		clock: clock,
	}
	s.IStore = store.Wrap(s)

	if opts.JournalDir != "" {
		j, err := openJournal(journalPath(opts.JournalDir, opts.ShardID), opts.Fsync)
		if err != nil {
			_ = s.db.Close()
			return nil, store.NewError(store.RetCInternalError, err.Error())
		}

		start := time.Now()
		now := clock()
		count, err := j.replay(func(argv [][]byte) {
			if res := s.db.Exec(now, argv); res.Reply.IsError() {
				log.Warningf("journal replay: %q failed: %s", argv[0], res.Reply.Err.Msg)
			}
		})
		if err != nil {
			_ = j.close()
			_ = s.db.Close()
			return nil, store.NewError(store.RetCInternalError, err.Error())
		}
		log.Infof("shard %d: replayed %d commands from %s in %s", opts.ShardID, count, j.path, time.Since(start))
		s.journal = j
	}

	return s, nil
}

// --------------------------------------------------------------------------
// Executor Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Exec(argv [][]byte) (command.Reply, error) {
	if s.journal == nil || !isWrite(argv) {
		return s.db.Exec(s.clock(), argv).Reply, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := s.db.Exec(s.clock(), argv)
	if res.Propagate != nil {
		if err := s.journal.append(res.Propagate); err != nil {
			log.Errorf("journal append failed: %v", err)
			return res.Reply, store.NewError(store.RetCInternalError, "journal: "+err.Error())
		}
	}
	return res.Reply, nil
}

func (s *Store) Info() (command.Info, error) {
	return s.db.Info(), nil
}

// JournalSize returns the size of the journal in bytes (0 without journal)
func (s *Store) JournalSize() int64 {
	if s.journal == nil {
		return 0
	}
	return s.journal.bytes()
}

// Close closes the journal and the database
func (s *Store) Close() error {
	var err error
	if s.journal != nil {
		err = s.journal.close()
	}
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

func isWrite(argv [][]byte) bool {
	if len(argv) == 0 {
		return false
	}
	spec, ok := command.Lookup(string(argv[0]))
	return ok && spec.IsWrite()
}
