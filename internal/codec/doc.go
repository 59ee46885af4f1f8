// Package codec turns cache values into the bytes stored in entry files and
// back. Values are restricted to a closed model (nil, bool, int64, float64,
// string, []byte, []any, map[string]any); a pluggable Serializer (msgpack by
// default, CBOR optionally) produces the binary form, which is then base64
// encoded and wrapped in a fixed header and footer so that a raw entry file is
// inert if a web server ever serves it directly.
package codec
