package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding.
// Byte slices (args, values, meta) are base64 encoded by encoding/json, the message type is
// written by name (see common.MessageType.MarshalJSON).
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// encoding/json merges into existing values, absent fields must not survive
	*msg = common.Message{}
	return json.Unmarshal(b, msg)
}
