package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/sKV/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type" msgpack:"t"`

	// General fields
	Key   string   `json:"key,omitempty" msgpack:"k,omitempty"`     // Used for: Acquire, Release
	Args  [][]byte `json:"args,omitempty" msgpack:"a,omitempty"`    // Used for: Exec (request, argv[0] is the command name)
	TTL   uint64   `json:"ttl,omitempty" msgpack:"x,omitempty"`     // Used for: Acquire (milliseconds)
	Value []byte   `json:"value,omitempty" msgpack:"v,omitempty"`   // Used for: Exec, Info, Acquire (responses), Release (request)

	// Response only fields
	Ok   bool   `json:"ok,omitempty" msgpack:"o,omitempty"`   // Used for: Acquire, Release responses
	Code uint8  `json:"code,omitempty" msgpack:"c,omitempty"` // store.RetCode of Err
	Err  string `json:"err,omitempty" msgpack:"e,omitempty"`  // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty" msgpack:"m,omitempty"` // Unused, can be used for additional Adapters
}

// Error returns the error carried by a response, nil if there is none.
// The result is a *store.Error, so command errors keep their kind across the wire.
func (m *Message) Error() error {
	if m.MsgType != MsgTError && m.Err == "" {
		return nil
	}
	code := store.RetCode(m.Code)
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Err)
}

// setErr stores err in the message. Codes of *store.Error are preserved.
func (m *Message) setErr(err error) *Message {
	if err == nil {
		return m
	}
	var se *store.Error
	if errors.As(err, &se) {
		m.Code = uint8(se.Code)
		m.Err = se.Msg
		return m
	}
	m.Code = uint8(store.RetCInternalError)
	m.Err = err.Error()
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewExecRequest creates a new Exec request for the command vector argv
func NewExecRequest(argv [][]byte) *Message {
	return &Message{
		MsgType: MsgTKVExec,
		Args:    argv,
	}
}

// NewExecResponse creates a new Exec response carrying a binary encoded command.Reply
func NewExecResponse(reply []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVExec,
		Value:   reply,
	}
	return msg.setErr(err)
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTKVInfo,
	}
}

// NewInfoResponse creates a new Info response carrying a json encoded command.Info
func NewInfoResponse(info []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVInfo,
		Value:   info,
	}
	return msg.setErr(err)
}

// NewAcquireRequest creates a new Acquire request, ttl is in milliseconds (0 = no timeout)
func NewAcquireRequest(key string, ttl uint64) *Message {
	return &Message{
		MsgType: MsgTLCKAcquire,
		Key:     key,
		TTL:     ttl,
	}
}

// NewAcquireResponse creates a new Acquire response
func NewAcquireResponse(ok bool, value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTLCKAcquire,
		Ok:      ok,
		Value:   value,
	}
	return msg.setErr(err)
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(key string, ownerId []byte) *Message {
	return &Message{
		MsgType: MsgTLCKRelease,
		Key:     key,
		Value:   ownerId,
	}
}

// NewReleaseResponse creates a new Release response
func NewReleaseResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTLCKRelease,
		Ok:      ok,
	}
	return msg.setErr(err)
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	return msg.setErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    uint8(code),
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// msgTypeNames are the names used in logs, metric labels and the json encoding
var msgTypeNames = map[MessageType]string{
	MsgTUnknown:    "unknown",
	MsgTSuccess:    "success",
	MsgTError:      "error",
	MsgTKVExec:     "exec",
	MsgTKVInfo:     "info",
	MsgTLCKAcquire: "acquire",
	MsgTLCKRelease: "release",
	MsgTCustom:     "custom",
}

func (t MessageType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the type by name, so json messages stay readable
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *MessageType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for typ, n := range msgTypeNames {
		if n == name {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", name)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTKVExec // Execute a command vector
	MsgTKVInfo // Summary of the database

	// ILockManager operations

	MsgTLCKAcquire // Acquire a lock
	MsgTLCKRelease // Release a lock

	// Custom operations

	MsgTCustom // Custom operation type
)
