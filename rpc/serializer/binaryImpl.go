package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasArgs  byte = 1 << 1
	hasTTL   byte = 1 << 2
	hasValue byte = 1 << 3
	hasOk    byte = 1 << 4
	hasErr   byte = 1 << 5
	hasMeta  byte = 1 << 6
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

// Serialize writes the layout:
//
//	MsgType (1) | flags (1) | key | args | ttl | value | ok | code+err | meta
//
// Strings and byte slices are prefixed by a uint32 length, args by a uint32 count,
// all integers are big endian. Absent fields take no space.
func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, 2, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	// Handle Key
	if msg.Key != "" {
		flags |= hasKey
		result = appendBytes(result, []byte(msg.Key))
	}

	// Handle Args
	if msg.Args != nil {
		flags |= hasArgs
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Args)))
		for _, arg := range msg.Args {
			result = appendBytes(result, arg)
		}
	}

	// Handle TTL
	if msg.TTL > 0 {
		flags |= hasTTL
		result = binary.BigEndian.AppendUint64(result, msg.TTL)
	}

	// Handle Value
	if msg.Value != nil {
		flags |= hasValue
		result = appendBytes(result, msg.Value)
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result = append(result, 1)
	}

	// Handle Err (the code is only meaningful together with an error)
	if msg.Err != "" || msg.Code != 0 {
		flags |= hasErr
		result = append(result, msg.Code)
		result = appendBytes(result, []byte(msg.Err))
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		result = appendBytes(result, msg.Meta)
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]
	r := reader{data: data, pos: 2}

	// Read Key if present
	msg.Key = ""
	if flags&hasKey != 0 {
		key, err := r.bytes("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	}

	// Read Args if present
	msg.Args = nil
	if flags&hasArgs != 0 {
		n, err := r.uint32("args count")
		if err != nil {
			return err
		}
		// every argument needs at least its length prefix
		if uint64(n)*4 > uint64(len(data)-r.pos) {
			return fmt.Errorf("data too short for %d args", n)
		}
		msg.Args = make([][]byte, n)
		for i := range msg.Args {
			arg, err := r.bytes("arg")
			if err != nil {
				return err
			}
			msg.Args[i] = append([]byte{}, arg...)
		}
	}

	// Read TTL if present
	msg.TTL = 0
	if flags&hasTTL != 0 {
		ttl, err := r.uint64("TTL")
		if err != nil {
			return err
		}
		msg.TTL = ttl
	}

	// Read Value if present - create an empty slice (not nil) if length is 0
	msg.Value = nil
	if flags&hasValue != 0 {
		value, err := r.bytes("value")
		if err != nil {
			return err
		}
		msg.Value = append([]byte{}, value...)
	}

	// Read Ok if present
	msg.Ok = false
	if flags&hasOk != 0 {
		if r.pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = data[r.pos] != 0
		r.pos++
	}

	// Read Code and Err if present
	msg.Code = 0
	msg.Err = ""
	if flags&hasErr != 0 {
		if r.pos+1 > len(data) {
			return fmt.Errorf("data too short for error code")
		}
		msg.Code = data[r.pos]
		r.pos++

		errBytes, err := r.bytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(errBytes)
	}

	// Read Meta if present
	msg.Meta = nil
	if flags&hasMeta != 0 {
		meta, err := r.bytes("meta")
		if err != nil {
			return err
		}
		msg.Meta = append([]byte{}, meta...)
	}

	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Key != "" {
		size += 4 + len(msg.Key) // 4 bytes for length + key string
	}
	if msg.Args != nil {
		size += 4 // count
		for _, arg := range msg.Args {
			size += 4 + len(arg)
		}
	}
	if msg.TTL > 0 {
		size += 8 // uint64
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value) // 4 bytes for length + value bytes
	}
	if msg.Ok {
		size += 1 // 1 byte for boolean
	}
	if msg.Err != "" || msg.Code != 0 {
		size += 1 + 4 + len(msg.Err) // code + 4 bytes for length + error string
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta) // 4 bytes for length + meta bytes
	}

	return size
}

// appendBytes appends b with a uint32 length prefix
func appendBytes(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// reader is a bounds checked cursor over a serialized message
type reader struct {
	data []byte
	pos  int
}

func (r *reader) uint32(field string) (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) uint64(field string) (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// bytes returns a length prefixed slice aliasing the input
func (r *reader) bytes(field string) ([]byte, error) {
	n, err := r.uint32(field + " length")
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(len(r.data)-r.pos) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}
