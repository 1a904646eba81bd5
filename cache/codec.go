package cache

import "github.com/vmihailenco/msgpack/v5"

type msgpackCodec struct{}

// NewMsgpackCodec returns the default Codec. msgpack keeps payloads compact and
// round-trips times, nil pointers and raw byte slices without loss.
func NewMsgpackCodec() Codec {
	return msgpackCodec{}
}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
