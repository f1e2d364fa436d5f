package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// NewGOBSerializer creates a new serializer using Go's gob format.
// Every message is encoded with its own encoder, so each payload carries the type description
// and can be decoded on its own. This makes gob the largest of the formats on the wire.
func NewGOBSerializer() IRPCSerializer {
	return gobSerializerImpl{}
}

type gobSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// gob skips zero values on the wire and leaves the target fields untouched
	*msg = common.Message{}
	return gob.NewDecoder(bytes.NewReader(b)).Decode(msg)
}
