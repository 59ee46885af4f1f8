package codec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	SerializerMsgpack = "msgpack"
	SerializerCBOR    = "cbor"
)

// Serializer 负责封闭值模型与自描述二进制格式之间的转换。
type Serializer interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// NewSerializer 根据配置名称返回对应实现，空字符串默认 msgpack。
func NewSerializer(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SerializerMsgpack:
		return Msgpack{}, nil
	case SerializerCBOR:
		return NewCBOR()
	default:
		return nil, fmt.Errorf("unknown serializer %q", name)
	}
}

// Msgpack uses vmihailenco/msgpack/v5. The zero value is ready to use.
type Msgpack struct{}

func (Msgpack) Name() string { return SerializerMsgpack }

func (Msgpack) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack) Decode(b []byte) (any, error) {
	var v any
	err := msgpack.Unmarshal(b, &v)
	return v, err
}

// CBOR uses fxamacker/cbor with deterministic encoding so identical values
// produce identical entry files. Construct with NewCBOR.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR 构造 CBOR 序列化器；map 统一解码为 map[string]any，非 UTF-8 字符串原样保留。
func NewCBOR() (CBOR, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Go 字符串可以是任意字节序列，编码端原样写出，解码端也必须原样接受。
		UTF8: cbor.UTF8DecodeInvalid,
	}.DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm}, nil
}

func (CBOR) Name() string { return SerializerCBOR }

func (c CBOR) Encode(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c CBOR) Decode(b []byte) (any, error) {
	var v any
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
