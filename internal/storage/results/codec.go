package results

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

var msgpack = &codec.MsgpackHandle{}

func init() {
	msgpack.Canonical = true
}

func encode(v any) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, msgpack).Encode(v); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return out, nil
}

func decode(data []byte, v any) error {
	if err := codec.NewDecoderBytes(data, msgpack).Decode(v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
