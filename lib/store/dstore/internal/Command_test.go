package internal

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func args(parts ...string) [][]byte {
	argv := make([][]byte, len(parts))
	for i, p := range parts {
		argv[i] = []byte(p)
	}
	return argv
}

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name:     "Command with key and value",
			command:  Command{Now: 100, Argv: args("SET", "testkey", "testvalue")},
			expected: headerSize + 4 + 3 + 4 + 7 + 4 + 9,
		},
		{
			name:     "Command without arguments",
			command:  Command{Now: 100},
			expected: headerSize,
		},
		{
			name:     "Command with empty argument",
			command:  Command{Argv: args("SET", "", "")},
			expected: headerSize + 4 + 3 + 4 + 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.command.SizeBytes()
			if size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name:    "Standard command with value",
			command: Command{Now: 1_700_000_000_000, Argv: args("SET", "testkey", "testvalue", "PX", "100")},
		},
		{
			name:    "Command with single argument",
			command: Command{Now: 1, Argv: args("GGET")},
		},
		{
			name:    "Command with empty arguments",
			command: Command{Now: 5, Argv: args("SET", "", "")},
		},
		{
			name:    "Negative clock",
			command: Command{Now: -42, Argv: args("DEL", "k")},
		},
		{
			name:    "Command with binary value",
			command: Command{Now: 7, Argv: [][]byte{[]byte("SET"), []byte("binary"), {0, 1, 2, 3, 254, 255}}},
		},
		{
			name:    "Command with Unicode key",
			command: Command{Now: 7, Argv: args("SET", "你好世界", "unicode test")}, // Hello World in Chinese
		},
		{
			name:    "Large value",
			command: Command{Now: 7, Argv: args("APPEND", "k", strings.Repeat("x", 1<<16))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()

			var newCommand Command
			if err := newCommand.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			if newCommand.Now != tt.command.Now {
				t.Errorf("Now mismatch: got %v, want %v", newCommand.Now, tt.command.Now)
			}
			if len(newCommand.Argv) != len(tt.command.Argv) {
				t.Fatalf("Argv length mismatch: got %d, want %d", len(newCommand.Argv), len(tt.command.Argv))
			}
			for i := range tt.command.Argv {
				if !bytes.Equal(newCommand.Argv[i], tt.command.Argv[i]) {
					t.Errorf("argument %d mismatch: got %q, want %q", i, newCommand.Argv[i], tt.command.Argv[i])
				}
			}

			// Verify that SizeBytes matches the serialized data length
			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d",
					tt.command.SizeBytes(), len(data))
			}

			// Deserialized arguments must not alias the input buffer
			for i := range data {
				data[i] = 0
			}
			if len(tt.command.Argv) > 0 && !bytes.Equal(newCommand.Argv[0], tt.command.Argv[0]) {
				t.Errorf("Deserialize kept a reference to the input buffer")
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	header := func(argc uint32) []byte {
		data := make([]byte, headerSize)
		data[0] = commandVersion
		binary.BigEndian.PutUint32(data[9:13], argc)
		return data
	}

	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectedErr: "data too short for command",
		},
		{
			name:        "Data too short (less than header)",
			data:        []byte{1, 2, 3, 4, 5},
			expectedErr: "data too short for command",
		},
		{
			name:        "Unknown version",
			data:        append([]byte{9}, make([]byte, headerSize-1)...),
			expectedErr: "unsupported command version 9",
		},
		{
			name:        "Too many arguments",
			data:        header(1000),
			expectedErr: "data too short for 1000 arguments",
		},
		{
			name: "Invalid argument length",
			data: func() []byte {
				data := header(1)
				return binary.BigEndian.AppendUint32(data, 50)
			}(),
			expectedErr: "data too short for argument 0 of length 50",
		},
		{
			name: "Trailing bytes",
			data: func() []byte {
				data := (&Command{Argv: args("GET", "k")}).Serialize()
				return append(data, 1, 2)
			}(),
			expectedErr: "2 trailing bytes after command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)
			if err == nil {
				t.Fatalf("Deserialize() expected error %q, got nil", tt.expectedErr)
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Deserialize() error = %q, want %q", err.Error(), tt.expectedErr)
			}
		})
	}
}
