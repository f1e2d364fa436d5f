package command

import (
	"sort"
	"strings"
)

// --------------------------------------------------------------------------
// Command Table
// --------------------------------------------------------------------------

// Flags describe how a command interacts with the database
type Flags uint8

const (
	FlagWrite    Flags = 1 << iota // may modify the database, runs under the write lock
	FlagReadOnly                   // never modifies the database, runs under the read lock
)

func (f Flags) String() string {
	var parts []string
	if f&FlagWrite != 0 {
		parts = append(parts, "write")
	}
	if f&FlagReadOnly != 0 {
		parts = append(parts, "readonly")
	}
	return strings.Join(parts, "|")
}

// handler executes a command, argv[0] is the command name
type handler func(c *call) Reply

// Spec describes a command
type Spec struct {
	Name  string
	Arity int // > 0: exact argument count (including the name), < 0: minimum count
	Flags Flags
	run   handler
}

// IsWrite reports whether the command may modify the database
func (s *Spec) IsWrite() bool {
	return s.Flags&FlagWrite != 0
}

// checkArity reports whether argc arguments (including the name) are acceptable
func (s *Spec) checkArity(argc int) bool {
	if s.Arity > 0 {
		return argc == s.Arity
	}
	return argc >= -s.Arity
}

var table map[string]*Spec

func init() {
	specs := []*Spec{
		// strings
		{Name: "set", Arity: -3, Flags: FlagWrite, run: setCommand},
		{Name: "setnx", Arity: 3, Flags: FlagWrite, run: setnxCommand},
		{Name: "setex", Arity: 4, Flags: FlagWrite, run: setexCommand},
		{Name: "psetex", Arity: 4, Flags: FlagWrite, run: psetexCommand},
		{Name: "get", Arity: 2, Flags: FlagReadOnly, run: getCommand},
		{Name: "getset", Arity: 3, Flags: FlagWrite, run: getsetCommand},
		{Name: "setrange", Arity: 4, Flags: FlagWrite, run: setrangeCommand},
		{Name: "getrange", Arity: 4, Flags: FlagReadOnly, run: getrangeCommand},
		{Name: "mget", Arity: -2, Flags: FlagReadOnly, run: mgetCommand},
		{Name: "mset", Arity: -3, Flags: FlagWrite, run: msetCommand},
		{Name: "msetnx", Arity: -3, Flags: FlagWrite, run: msetnxCommand},
		{Name: "incr", Arity: 2, Flags: FlagWrite, run: incrCommand},
		{Name: "decr", Arity: 2, Flags: FlagWrite, run: decrCommand},
		{Name: "incrby", Arity: 3, Flags: FlagWrite, run: incrbyCommand},
		{Name: "decrby", Arity: 3, Flags: FlagWrite, run: decrbyCommand},
		{Name: "incrbyfloat", Arity: 3, Flags: FlagWrite, run: incrbyfloatCommand},
		{Name: "append", Arity: 3, Flags: FlagWrite, run: appendCommand},
		{Name: "strlen", Arity: 2, Flags: FlagReadOnly, run: strlenCommand},

		// keyspace
		{Name: "del", Arity: -2, Flags: FlagWrite, run: delCommand},
		{Name: "exists", Arity: -2, Flags: FlagReadOnly, run: existsCommand},

		// groups (a group read touches the recency clock, so it is a write)
		{Name: "gset", Arity: -3, Flags: FlagWrite, run: gsetCommand},
		{Name: "gget", Arity: -2, Flags: FlagWrite, run: ggetCommand},
		{Name: "gdel", Arity: 2, Flags: FlagWrite, run: gdelCommand},
		{Name: "grecency", Arity: 2, Flags: FlagReadOnly, run: grecencyCommand},
		{Name: "goldest", Arity: 2, Flags: FlagReadOnly, run: goldestCommand},
		{Name: "grefcount", Arity: 2, Flags: FlagReadOnly, run: grefcountCommand},
	}

	table = make(map[string]*Spec, len(specs))
	for _, s := range specs {
		table[s.Name] = s
	}
}

// Lookup returns the spec of a command, names are case-insensitive
func Lookup(name string) (*Spec, bool) {
	s, ok := table[strings.ToLower(name)]
	return s, ok
}

// Commands returns the specs of all commands sorted by name
func Commands() []*Spec {
	out := make([]*Spec, 0, len(table))
	for _, s := range table {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
