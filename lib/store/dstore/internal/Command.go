package internal

import (
	"encoding/binary"
	"fmt"
)

// commandVersion is the first byte of every serialized command
const commandVersion byte = 1

// headerSize is version (1) + now (8) + argc (4)
const headerSize = 1 + 8 + 4

// Command represents a command to be executed by the state machine (a single entry in the raft log).
// Now is the clock of the proposing node, every replica executes the command with this time.
type Command struct {
	Now  int64
	Argv [][]byte
}

// Name returns the command name (argv[0]) or "" for an empty command
func (command *Command) Name() string {
	if len(command.Argv) == 0 {
		return ""
	}
	return string(command.Argv[0])
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := headerSize
	for _, a := range command.Argv {
		size += 4 + len(a)
	}
	return size
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for the format version,
// 8 bytes for now (big endian),
// 4 bytes for the argument count (big endian),
// per argument 4 bytes length (big endian) followed by the argument bytes
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = commandVersion
	binary.BigEndian.PutUint64(result[1:9], uint64(command.Now))
	binary.BigEndian.PutUint32(result[9:13], uint32(len(command.Argv)))

	pos := headerSize
	for _, a := range command.Argv {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(a)))
		pos += 4
		copy(result[pos:], a)
		pos += len(a)
	}
	return result
}

// Deserialize extracts all Command fields from a byte array.
// The arguments are copied, data may be reused by the caller afterwards.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}
	if data[0] != commandVersion {
		return fmt.Errorf("unsupported command version %d", data[0])
	}

	command.Now = int64(binary.BigEndian.Uint64(data[1:9]))
	argc := binary.BigEndian.Uint32(data[9:13])

	// every argument needs at least its length prefix
	if uint64(argc)*4 > uint64(len(data)-headerSize) {
		return fmt.Errorf("data too short for %d arguments", argc)
	}

	pos := headerSize
	command.Argv = make([][]byte, argc)
	for i := range command.Argv {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for length of argument %d", i)
		}
		l := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if l > len(data)-pos {
			return fmt.Errorf("data too short for argument %d of length %d", i, l)
		}
		command.Argv[i] = append([]byte{}, data[pos:pos+l]...)
		pos += l
	}

	if pos != len(data) {
		return fmt.Errorf("%d trailing bytes after command", len(data)-pos)
	}
	return nil
}
