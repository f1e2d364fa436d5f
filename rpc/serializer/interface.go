package serializer

import "github.com/ValentinKolb/sKV/rpc/common"

// IRPCSerializer converts Messages to and from their wire representation.
//
// Implementations are stateless and safe for concurrent use by the transports.
// Deserialize replaces every field of msg, so a Message can be reused between calls
// without values of the previous message leaking into the next one.
type IRPCSerializer interface {
	// Serialize encodes msg
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg
	Deserialize(b []byte, msg *common.Message) error
}
