package store

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/sKV/lib/command"
)

// --------------------------------------------------------------------------
// Typed Store
// --------------------------------------------------------------------------

// typedStore implements the typed IStore methods on top of any Executor
type typedStore struct {
	Executor
}

// Wrap turns an Executor into an IStore
func Wrap(exec Executor) IStore {
	return &typedStore{Executor: exec}
}

// Args builds an argument vector from strings and byte slices
func Args(parts ...any) [][]byte {
	argv := make([][]byte, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case []byte:
			argv[i] = v
		case string:
			argv[i] = []byte(v)
		case int64:
			argv[i] = strconv.AppendInt(nil, v, 10)
		case int:
			argv[i] = strconv.AppendInt(nil, int64(v), 10)
		case float64:
			argv[i] = strconv.AppendFloat(nil, v, 'f', -1, 64)
		default:
			panic(fmt.Sprintf("store: unsupported argument type %T", p))
		}
	}
	return argv
}

// do executes argv and turns error replies into *Error
func (s *typedStore) do(argv [][]byte) (command.Reply, error) {
	reply, err := s.Exec(argv)
	if err != nil {
		return reply, err
	}
	if reply.IsError() {
		return reply, FromCommandError(reply.Err)
	}
	return reply, nil
}

func (s *typedStore) doInt(argv [][]byte) (int64, error) {
	reply, err := s.do(argv)
	if err != nil {
		return 0, err
	}
	if reply.Kind != command.ReplyInt {
		return 0, unexpected(reply, command.ReplyInt)
	}
	return reply.Int, nil
}

func (s *typedStore) doBulk(argv [][]byte) ([]byte, bool, error) {
	reply, err := s.do(argv)
	if err != nil {
		return nil, false, err
	}
	switch reply.Kind {
	case command.ReplyNull:
		return nil, false, nil
	case command.ReplyBulk:
		return reply.Bulk, true, nil
	default:
		return nil, false, unexpected(reply, command.ReplyBulk)
	}
}

func (s *typedStore) doArray(argv [][]byte) ([][]byte, error) {
	reply, err := s.do(argv)
	if err != nil {
		return nil, err
	}
	if reply.Kind != command.ReplyArray {
		return nil, unexpected(reply, command.ReplyArray)
	}
	out := make([][]byte, len(reply.Array))
	for i, item := range reply.Array {
		if item.Kind == command.ReplyBulk {
			out[i] = item.Bulk
		}
	}
	return out, nil
}

func unexpected(reply command.Reply, want command.ReplyKind) *Error {
	return NewError(RetCInternalError, fmt.Sprintf("unexpected reply: received %s, expected %s", reply.Kind, want))
}

// pairs interleaves keys and values after the command name
func pairs(name string, keys []string, values [][]byte) ([][]byte, error) {
	if len(keys) != len(values) {
		return nil, NewError(RetCArity, fmt.Sprintf("%d keys but %d values", len(keys), len(values)))
	}
	argv := make([][]byte, 0, 1+2*len(keys))
	argv = append(argv, []byte(name))
	for i, k := range keys {
		argv = append(argv, []byte(k), values[i])
	}
	return argv, nil
}

func withKeys(name string, keys []string) [][]byte {
	argv := make([][]byte, 0, 1+len(keys))
	argv = append(argv, []byte(name))
	for _, k := range keys {
		argv = append(argv, []byte(k))
	}
	return argv
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *typedStore) Set(key string, value []byte, opts SetOptions) (bool, error) {
	argv := Args("SET", key, value)
	if opts.NX {
		argv = append(argv, []byte("NX"))
	}
	if opts.XX {
		argv = append(argv, []byte("XX"))
	}
	if opts.TTL > 0 {
		argv = append(argv, Args("PX", opts.TTL.Milliseconds())...)
	}
	if opts.KeepTTL {
		argv = append(argv, []byte("KEEPTTL"))
	}

	reply, err := s.do(argv)
	if err != nil {
		return false, err
	}
	return reply.Kind == command.ReplyStatus, nil
}

func (s *typedStore) Get(key string) ([]byte, bool, error) {
	return s.doBulk(Args("GET", key))
}

func (s *typedStore) GetSet(key string, value []byte) ([]byte, bool, error) {
	return s.doBulk(Args("GETSET", key, value))
}

func (s *typedStore) SetRange(key string, offset int64, fragment []byte) (int64, error) {
	return s.doInt(Args("SETRANGE", key, offset, fragment))
}

func (s *typedStore) GetRange(key string, start, end int64) ([]byte, error) {
	v, _, err := s.doBulk(Args("GETRANGE", key, start, end))
	return v, err
}

func (s *typedStore) MGet(keys ...string) ([][]byte, error) {
	return s.doArray(withKeys("MGET", keys))
}

func (s *typedStore) MSet(keys []string, values [][]byte) error {
	argv, err := pairs("MSET", keys, values)
	if err != nil {
		return err
	}
	_, err = s.do(argv)
	return err
}

func (s *typedStore) MSetNX(keys []string, values [][]byte) (bool, error) {
	argv, err := pairs("MSETNX", keys, values)
	if err != nil {
		return false, err
	}
	n, err := s.doInt(argv)
	return n == 1, err
}

func (s *typedStore) IncrBy(key string, delta int64) (int64, error) {
	return s.doInt(Args("INCRBY", key, delta))
}

func (s *typedStore) IncrByFloat(key string, delta float64) (float64, error) {
	v, _, err := s.doBulk(Args("INCRBYFLOAT", key, delta))
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return 0, NewError(RetCInternalError, err.Error())
	}
	return f, nil
}

func (s *typedStore) Append(key string, fragment []byte) (int64, error) {
	return s.doInt(Args("APPEND", key, fragment))
}

func (s *typedStore) StrLen(key string) (int64, error) {
	return s.doInt(Args("STRLEN", key))
}

func (s *typedStore) Delete(keys ...string) (int64, error) {
	return s.doInt(withKeys("DEL", keys))
}

func (s *typedStore) Exists(keys ...string) (int64, error) {
	return s.doInt(withKeys("EXISTS", keys))
}

func (s *typedStore) GroupSet(keys []string, values [][]byte) error {
	argv, err := pairs("GSET", keys, values)
	if err != nil {
		return err
	}
	_, err = s.do(argv)
	return err
}

func (s *typedStore) GroupGet(keys ...string) ([][]byte, error) {
	return s.doArray(withKeys("GGET", keys))
}

func (s *typedStore) GroupDelete(id string) (bool, error) {
	n, err := s.doInt(Args("GDEL", id))
	return n == 1, err
}

func (s *typedStore) GroupRecency(id string) (uint64, bool, error) {
	reply, err := s.do(Args("GRECENCY", id))
	if err != nil || reply.Kind == command.ReplyNull {
		return 0, false, err
	}
	if reply.Kind != command.ReplyInt {
		return 0, false, unexpected(reply, command.ReplyInt)
	}
	return uint64(reply.Int), true, nil
}

func (s *typedStore) GroupOldest(n int) ([]string, error) {
	values, err := s.doArray(Args("GOLDEST", n))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(values))
	for i, v := range values {
		ids[i] = string(v)
	}
	return ids, nil
}

func (s *typedStore) GroupRefCount(key string) (int64, error) {
	return s.doInt(Args("GREFCOUNT", key))
}
