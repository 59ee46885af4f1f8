package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

const (
	// Header/Footer 让条目文件在被当作 PHP 执行时只是一段注释。
	Header = "<?php /*"
	Footer = "*/ ?>"

	envelopeValue  = "v"
	envelopeExpiry = "x"
)

// ErrCorrupt 表示条目内容无法解码（外来文件、截断或格式不符）。
var ErrCorrupt = errors.New("corrupt cache entry")

// Payload 是解码后的条目：值以及内嵌的过期时间（未记录时为零值）。
type Payload struct {
	Value     any
	ExpiresAt time.Time
}

// Codec 组合 Serializer、base64 与固定头尾。零值使用 msgpack 且不限制大小。
type Codec struct {
	serializer Serializer
	maxPayload int
}

// New 构造 Codec；maxPayload <= 0 时不限制解码大小。
func New(serializer Serializer, maxPayload int) Codec {
	return Codec{serializer: serializer, maxPayload: maxPayload}
}

// SerializerName 返回当前序列化格式，供日志与诊断输出。
func (c Codec) SerializerName() string {
	return c.ser().Name()
}

// ser 让零值 Codec 退回 msgpack。
func (c Codec) ser() Serializer {
	if c.serializer == nil {
		return Msgpack{}
	}
	return c.serializer
}

// Encode 序列化 {v, x} 信封 → base64 → 加上头尾。value 必须已经 Normalize。
func (c Codec) Encode(value any, expiresAt time.Time) ([]byte, error) {
	var expiry int64
	if !expiresAt.IsZero() {
		expiry = ceilUnix(expiresAt)
	}
	raw, err := c.ser().Encode(map[string]any{
		envelopeValue:  value,
		envelopeExpiry: expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("serialize entry: %w", err)
	}

	out := make([]byte, 0, len(Header)+base64.StdEncoding.EncodedLen(len(raw))+len(Footer))
	out = append(out, Header...)
	out = base64.StdEncoding.AppendEncode(out, raw)
	out = append(out, Footer...)
	return out, nil
}

// ceilUnix 把过期时间向上取整到秒，条目只会晚于 TTL 过期，不会提前。
func ceilUnix(t time.Time) int64 {
	sec := t.Unix()
	if t.Nanosecond() > 0 {
		sec++
	}
	return sec
}

// Decode 逆向执行 Encode，任何失败都归为 ErrCorrupt。
func (c Codec) Decode(b []byte) (Payload, error) {
	if c.maxPayload > 0 && len(b) > c.maxPayload {
		return Payload{}, fmt.Errorf("%w: payload too large: %d > %d", ErrCorrupt, len(b), c.maxPayload)
	}
	if len(b) < len(Header)+len(Footer) ||
		!bytes.HasPrefix(b, []byte(Header)) ||
		!bytes.HasSuffix(b, []byte(Footer)) {
		return Payload{}, fmt.Errorf("%w: missing header or footer", ErrCorrupt)
	}
	body := b[len(Header) : len(b)-len(Footer)]

	raw := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(raw, body)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	decoded, err := c.ser().Decode(raw[:n])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	normalized, err := Normalize(decoded)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	envelope, ok := normalized.(map[string]any)
	if !ok {
		return Payload{}, fmt.Errorf("%w: envelope is %T", ErrCorrupt, normalized)
	}
	value, ok := envelope[envelopeValue]
	if !ok {
		return Payload{}, fmt.Errorf("%w: envelope without value", ErrCorrupt)
	}

	payload := Payload{Value: value}
	if expiry, ok := envelope[envelopeExpiry].(int64); ok && expiry != 0 {
		payload.ExpiresAt = time.Unix(expiry, 0)
	}
	return payload, nil
}
