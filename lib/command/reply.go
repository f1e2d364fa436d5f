package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Reply Model
// --------------------------------------------------------------------------

// ReplyKind is the type of a command reply
type ReplyKind uint8

const (
	ReplyStatus ReplyKind = iota // simple status such as OK
	ReplyInt                     // signed 64-bit integer
	ReplyBulk                    // byte string
	ReplyNull                    // absent value
	ReplyArray                   // list of replies
	ReplyError                   // command error
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyStatus:
		return "status"
	case ReplyInt:
		return "integer"
	case ReplyBulk:
		return "bulk"
	case ReplyNull:
		return "null"
	case ReplyArray:
		return "array"
	case ReplyError:
		return "error"
	default:
		return "unknown"
	}
}

// Reply is the result of a command
type Reply struct {
	Kind  ReplyKind
	Str   string // ReplyStatus
	Int   int64  // ReplyInt
	Bulk  []byte // ReplyBulk
	Array []Reply
	Err   *Error // ReplyError
}

// OK is the status reply of successful writes without a result
func OK() Reply { return Reply{Kind: ReplyStatus, Str: "OK"} }

// Int creates an integer reply
func Int(n int64) Reply { return Reply{Kind: ReplyInt, Int: n} }

// Bulk creates a byte string reply
func Bulk(b []byte) Reply { return Reply{Kind: ReplyBulk, Bulk: b} }

// Null creates a null reply
func Null() Reply { return Reply{Kind: ReplyNull} }

// Array creates an array reply
func Array(items ...Reply) Reply { return Reply{Kind: ReplyArray, Array: items} }

// Fail creates an error reply
func Fail(err *Error) Reply { return Reply{Kind: ReplyError, Err: err} }

// Bool is Int(1) for true and Int(0) for false
func Bool(b bool) Reply {
	if b {
		return Int(1)
	}
	return Int(0)
}

// IsError reports whether the reply is an error
func (r Reply) IsError() bool { return r.Kind == ReplyError }

// AsError returns the error of an error reply and nil otherwise
func (r Reply) AsError() error {
	if r.Kind == ReplyError && r.Err != nil {
		return r.Err
	}
	return nil
}

func (r Reply) String() string {
	switch r.Kind {
	case ReplyStatus:
		return r.Str
	case ReplyInt:
		return "(integer) " + strconv.FormatInt(r.Int, 10)
	case ReplyBulk:
		return strconv.Quote(string(r.Bulk))
	case ReplyNull:
		return "(nil)"
	case ReplyArray:
		parts := make([]string, len(r.Array))
		for i, item := range r.Array {
			parts[i] = fmt.Sprintf("%d) %s", i+1, item)
		}
		return strings.Join(parts, "\n")
	case ReplyError:
		return "(error) " + r.Err.Msg
	default:
		return "(unknown)"
	}
}

// --------------------------------------------------------------------------
// Binary Encoding (used to move replies through raft results)
// --------------------------------------------------------------------------

// MarshalBinary encodes the reply as:
// kind (u8) followed by the payload of the kind
//   - status: u32 length + bytes
//   - integer: i64
//   - bulk: u32 length + bytes
//   - array: u32 count + encoded items
//   - error: error kind (u8) + u32 length + message
//
// Numbers are little endian.
func (r Reply) MarshalBinary() ([]byte, error) {
	return r.appendBinary(nil), nil
}

func (r Reply) appendBinary(b []byte) []byte {
	b = append(b, byte(r.Kind))
	switch r.Kind {
	case ReplyStatus:
		b = appendBytes(b, []byte(r.Str))
	case ReplyInt:
		b = binary.LittleEndian.AppendUint64(b, uint64(r.Int))
	case ReplyBulk:
		b = appendBytes(b, r.Bulk)
	case ReplyArray:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(r.Array)))
		for _, item := range r.Array {
			b = item.appendBinary(b)
		}
	case ReplyError:
		b = append(b, byte(r.Err.Kind))
		b = appendBytes(b, []byte(r.Err.Msg))
	}
	return b
}

// UnmarshalBinary decodes a reply written by MarshalBinary
func (r *Reply) UnmarshalBinary(data []byte) error {
	rest, err := r.decode(data)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("reply: %d trailing bytes", len(rest))
	}
	return nil
}

var errShortReply = errors.New("reply: data too short")

func (r *Reply) decode(data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, errShortReply
	}
	*r = Reply{Kind: ReplyKind(data[0])}
	data = data[1:]

	var err error
	switch r.Kind {
	case ReplyStatus:
		var s []byte
		if s, data, err = readBytes(data); err != nil {
			return nil, err
		}
		r.Str = string(s)
	case ReplyInt:
		if len(data) < 8 {
			return nil, errShortReply
		}
		r.Int = int64(binary.LittleEndian.Uint64(data))
		data = data[8:]
	case ReplyBulk:
		var bulk []byte
		if bulk, data, err = readBytes(data); err != nil {
			return nil, err
		}
		r.Bulk = append([]byte{}, bulk...)
	case ReplyNull:
	case ReplyArray:
		if len(data) < 4 {
			return nil, errShortReply
		}
		n := binary.LittleEndian.Uint32(data)
		data = data[4:]
		if int(n) > len(data) { // every item needs at least one byte
			return nil, errShortReply
		}
		r.Array = make([]Reply, n)
		for i := range r.Array {
			if data, err = r.Array[i].decode(data); err != nil {
				return nil, err
			}
		}
	case ReplyError:
		if len(data) < 1 {
			return nil, errShortReply
		}
		kind := Kind(data[0])
		var msg []byte
		if msg, data, err = readBytes(data[1:]); err != nil {
			return nil, err
		}
		r.Err = &Error{Kind: kind, Msg: string(msg)}
	default:
		return nil, fmt.Errorf("reply: unknown kind %d", r.Kind)
	}
	return data, nil
}

func appendBytes(b, payload []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(payload)))
	return append(b, payload...)
}

func readBytes(data []byte) (payload, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, errShortReply
	}
	n := binary.LittleEndian.Uint32(data)
	data = data[4:]
	if uint64(n) > uint64(len(data)) {
		return nil, nil, errShortReply
	}
	return data[:n], data[n:], nil
}
