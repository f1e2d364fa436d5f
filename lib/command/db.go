package command

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/group"
	"github.com/ValentinKolb/sKV/lib/notify"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var log = logger.GetLogger("command")

// --------------------------------------------------------------------------
// Database Context
// --------------------------------------------------------------------------

// DB is the context of one logical database: the primary keyspace, the group engine and the
// event sink. Every command is executed against exactly one DB.
//
// Thread-safety: DB is safe for concurrent use. Write commands run under the exclusive lock,
// readonly commands share the read lock, so commands of one database behave as if executed
// one after another.
type DB struct {
	id     uint64
	keys   db.KVDB
	groups *group.Engine
	events notify.Sink
	mu     sync.RWMutex
	stats  *stats
}

// Result is the outcome of a command
type Result struct {
	Reply Reply

	// Propagate is the argument vector that reproduces the effect of the command when executed
	// again (at any time), nil if the command changed nothing.
	Propagate [][]byte
}

// NewDB creates the context of database id over the keyspace keys.
// A nil sink discards events.
func NewDB(id uint64, keys db.KVDB, events notify.Sink) *DB {
	if events == nil {
		events = notify.Nop
	}
	return &DB{
		id:     id,
		keys:   keys,
		groups: group.NewEngine(),
		events: events,
		stats:  newStats(),
	}
}

// ID returns the database id
func (d *DB) ID() uint64 {
	return d.id
}

// Exec executes the command argv (argv[0] is the name) at the logical time now (unix ms).
//
// Thread-safety: This method is thread-safe.
func (d *DB) Exec(now int64, argv [][]byte) Result {
	d.stats.commands.Inc(1)

	if len(argv) == 0 {
		d.stats.errors.Inc(1)
		return Result{Reply: Fail(NewError(KindUnknownCommand, "empty command"))}
	}

	spec, ok := Lookup(string(argv[0]))
	if !ok {
		d.stats.errors.Inc(1)
		log.Debugf("unknown command '%s' on db %d", argv[0], d.id)
		return Result{Reply: Fail(NewError(KindUnknownCommand, "unknown command '%s'", argv[0]))}
	}
	if !spec.checkArity(len(argv)) {
		d.stats.errors.Inc(1)
		return Result{Reply: Fail(errArity(spec.Name))}
	}

	if spec.IsWrite() {
		d.mu.Lock()
		defer d.mu.Unlock()
	} else {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	d.keys.SetClock(now)

	c := &call{db: d, now: now, name: spec.Name, argv: argv}
	reply := spec.run(c)
	if reply.IsError() {
		d.stats.errors.Inc(1)
		return Result{Reply: reply}
	}
	return Result{Reply: reply, Propagate: c.prop}
}

// Do is Exec for string arguments
func (d *DB) Do(now int64, args ...string) Result {
	argv := make([][]byte, len(args))
	for i, a := range args {
		argv[i] = []byte(a)
	}
	return d.Exec(now, argv)
}

// Close releases the keyspace
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys.Close()
}

// --------------------------------------------------------------------------
// Info
// --------------------------------------------------------------------------

// Info summarises the state of a database
type Info struct {
	ID        uint64          `json:"id"`
	Keyspace  db.DatabaseInfo `json:"keyspace"`
	Groups    group.Stats     `json:"groups"`
	Commands  int64           `json:"commands"`
	Errors    int64           `json:"errors"`
	Hits      int64           `json:"hits"`
	Misses    int64           `json:"misses"`
	ValueSize SizeSummary     `json:"value_size"`
}

// SizeSummary describes the sizes of written values
type SizeSummary struct {
	Count int64   `json:"count"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P99   float64 `json:"p99"`
}

// Info returns a summary of the database
//
// Thread-safety: This method is thread-safe.
func (d *DB) Info() Info {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h := d.stats.valueSize.Snapshot()
	ps := h.Percentiles([]float64{0.5, 0.99})
	return Info{
		ID:       d.id,
		Keyspace: d.keys.GetInfo(),
		Groups:   d.groups.Stats(),
		Commands: d.stats.commands.Count(),
		Errors:   d.stats.errors.Count(),
		Hits:     d.stats.hits.Count(),
		Misses:   d.stats.misses.Count(),
		ValueSize: SizeSummary{
			Count: h.Count(),
			Min:   h.Min(),
			Max:   h.Max(),
			Mean:  h.Mean(),
			P50:   ps[0],
			P99:   ps[1],
		},
	}
}

// stats are the per database counters, kept in a go-metrics registry
type stats struct {
	registry  metrics.Registry
	commands  metrics.Counter
	errors    metrics.Counter
	hits      metrics.Counter
	misses    metrics.Counter
	valueSize metrics.Histogram
}

func newStats() *stats {
	r := metrics.NewRegistry()
	return &stats{
		registry:  r,
		commands:  metrics.GetOrRegisterCounter("commands", r),
		errors:    metrics.GetOrRegisterCounter("errors", r),
		hits:      metrics.GetOrRegisterCounter("keyspace.hits", r),
		misses:    metrics.GetOrRegisterCounter("keyspace.misses", r),
		valueSize: metrics.GetOrRegisterHistogram("value.size", r, metrics.NewUniformSample(1028)),
	}
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Save writes the keyspace followed by the group engine to w.
// Each section is prefixed with its length so that readers never consume bytes of the next one.
//
// Thread-safety: This method is thread-safe, it blocks write commands while running.
func (d *DB) Save(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	if err := d.keys.Save(&buf); err != nil {
		return fmt.Errorf("save keyspace: %w", err)
	}
	if err := writeSection(w, buf.Bytes()); err != nil {
		return err
	}

	buf.Reset()
	if err := d.groups.Save(&buf); err != nil {
		return fmt.Errorf("save groups: %w", err)
	}
	return writeSection(w, buf.Bytes())
}

// Load replaces the state of the database with a snapshot written by Save
//
// Thread-safety: This method is thread-safe, it blocks all commands while running.
func (d *DB) Load(r io.Reader) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := readSection(r, d.keys.Load); err != nil {
		log.Errorf("failed to load keyspace of db %d: %v", d.id, err)
		return fmt.Errorf("load keyspace: %w", err)
	}
	if err := readSection(r, d.groups.Load); err != nil {
		log.Errorf("failed to load groups of db %d: %v", d.id, err)
		return fmt.Errorf("load groups: %w", err)
	}
	return nil
}

func writeSection(w io.Writer, b []byte) error {
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(b)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readSection(r io.Reader, load func(io.Reader) error) error {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	section := io.LimitReader(r, int64(binary.LittleEndian.Uint64(hdr[:])))
	if err := load(section); err != nil {
		return err
	}
	// skip what the loader did not consume
	_, err := io.Copy(io.Discard, section)
	return err
}

// --------------------------------------------------------------------------
// Call Context
// --------------------------------------------------------------------------

// call is the state of one command execution
type call struct {
	db   *DB
	now  int64
	name string
	argv [][]byte
	prop [][]byte
}

// propagate marks the command for propagation as received
func (c *call) propagate() {
	c.prop = c.argv
}

// rewrite marks the command for propagation as the given arguments
func (c *call) rewrite(args ...[]byte) {
	c.prop = args
}

// notify emits a keyspace event for key
func (c *call) notify(class notify.Class, key string) {
	c.db.events.Notify(notify.Event{Class: class, Key: key, DB: c.db.id})
}

// upper returns the upper case command name, used in error messages
func (c *call) upper() string {
	return strings.ToUpper(c.name)
}
