// Package serializer encodes the common.Message exchanged between RPC client and server. The
// serializer is picked per process with --serializer, client and server must agree on it.
//
// A request carries a command vector (Args), a response the binary encoded command.Reply
// (Value). Serializers never look inside either, they only move the fields of the message.
//
// Formats:
//
//	binary    hand written, one flag byte marks the present fields. Smallest and fastest.
//	msgpack   vmihailenco/msgpack with one letter field names. Close to binary in size.
//	cbor      fxamacker/cbor (RFC 8949), shortest integer encoding, json field names.
//	json      readable, slow, base64 for byte slices.
//	gob       encoding/gob, large payloads and slow. Kept for compatibility.
//
// For command vectors msgpack and cbor come within a few bytes of binary; both are a good
// choice for clients written in other languages. See benchmark_test.go for numbers.
//
// Deserialize resets the target message first, so a message value can be reused between calls.
//
// Thread-safety: all serializers are stateless and can be shared.
//
// Example:
//
//	s := serializer.NewMsgpackSerializer()
//	data, err := s.Serialize(*common.NewExecRequest(argv))
//	var resp common.Message
//	err = s.Deserialize(raw, &resp)
package serializer
