package serializer

import (
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/fxamacker/cbor/v2"
)

// NewCBORSerializer creates a new serializer using CBOR (RFC 8949).
// Field names follow the json tags of common.Message, integers use the preferred (shortest)
// encoding.
func NewCBORSerializer() IRPCSerializer {
	em, err := cbor.PreferredUnsortedEncOptions().EncMode()
	if err != nil {
		// static options, can only fail on a programming error
		panic(err)
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return &cborSerializerImpl{enc: em, dec: dm}
}

// cborSerializerImpl implements the IRPCSerializer interface using fxamacker/cbor
type cborSerializerImpl struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (c *cborSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return c.enc.Marshal(msg)
}

func (c *cborSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	*msg = common.Message{}
	return c.dec.Unmarshal(b, msg)
}
