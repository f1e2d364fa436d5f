package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/sKV/lib/command"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":    NewJSONSerializer,
	"GOB":     NewGOBSerializer,
	"Binary":  NewBinarySerializer,
	"MsgPack": NewMsgpackSerializer,
	"CBOR":    NewCBORSerializer,
}

func argv(args ...string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	reply, _ := command.Array(command.Bulk([]byte("v")), command.Null()).MarshalBinary()

	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Exec request
		*common.NewExecRequest(argv("SET", "test-key", "test-value", "PX", "1000")),

		// Exec response
		*common.NewExecResponse(reply, nil),

		// Error response with code
		*common.NewExecResponse(nil, store.NewError(store.RetCWrongType, "WRONGTYPE Operation against a key holding the wrong kind of value")),

		// Error message
		*common.NewErrorResponse(store.RetCInternalError, "shard not found"),

		// Lock messages
		*common.NewAcquireRequest("test-lock-key", 30000),
		*common.NewAcquireResponse(true, []byte("owner"), nil),

		// Message with all fields filled
		{
			MsgType: common.MsgTCustom,
			Key:     "test-lock-key",
			Args:    argv("a", "b"),
			TTL:     60,
			Value:   []byte("test-lock-value"),
			Ok:      true,
			Code:    uint8(store.RetCSyntax),
			Err:     "syntax error",
			Meta:    []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestReplyPayload checks that a command reply survives every serializer byte for byte
func TestReplyPayload(t *testing.T) {
	want := command.Array(command.Int(-7), command.Bulk([]byte{0, 1, 2, 255}), command.Null())
	payload, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			data, err := serializer.Serialize(*common.NewExecResponse(payload, nil))
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			var msg common.Message
			if err := serializer.Deserialize(data, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			var got command.Reply
			if err := got.UnmarshalBinary(msg.Value); err != nil {
				t.Fatalf("UnmarshalBinary failed: %v", err)
			}
			if got.String() != want.String() {
				t.Errorf("Expected %s, got %s", want, got)
			}
		})
	}
}

// TestDeserializeResetsMessage checks that fields of a reused message do not leak into the next one
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			first, _ := serializer.Serialize(*common.NewAcquireResponse(true, []byte("owner"), nil))
			second, _ := serializer.Serialize(common.Message{MsgType: common.MsgTSuccess})

			var msg common.Message
			if err := serializer.Deserialize(first, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if err := serializer.Deserialize(second, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if msg.Ok || msg.Value != nil {
				t.Errorf("Expected fields to be reset, got %+v", msg)
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType: common.MsgTKVExec,
				Key:     "",
				TTL:     0,
				Value:   []byte{},
				Ok:      false,
				Err:     "",
				Meta:    []byte{},
			},
		},
		{
			name: "Empty args vector",
			msg: common.Message{
				MsgType: common.MsgTKVExec,
				Args:    [][]byte{},
			},
		},
		{
			name: "Empty argument inside args",
			msg: common.Message{
				MsgType: common.MsgTKVExec,
				Args:    [][]byte{[]byte("SET"), []byte("k"), {}},
			},
		},
		{
			name: "Code without message",
			msg: common.Message{
				MsgType: common.MsgTError,
				Code:    uint8(store.RetCInternalError),
			},
		},
		{
			name: "Message with empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTCustom,
				Meta:    []byte{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// The binary format keeps nil and empty apart, so the round trip is exact
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Mismatch after round trip:\nOriginal: %+v\nResult: %+v", tc.msg, result)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, 8, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Huge args count",
			data:        []byte{3, 2, 0xff, 0xff, 0xff, 0xff}, // Claims 4 billion args
			expectError: true,
		},
		{
			name:        "Trailing bytes",
			data:        []byte{1, 0, 42},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
