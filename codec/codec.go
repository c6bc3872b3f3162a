// Package codec provides the pluggable serializer rto uses for call
// arguments and return values. Msgpack is the default; Gob is offered as a
// stdlib-only fallback for callers unwilling to take the third-party
// dependency.
package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec marshals and unmarshals values embedded in call bodies. It is never
// asked to handle the packet header itself, only the body.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Msgpack is the default Codec: compact and schema-less.
type Msgpack struct{}

// Marshal implements Codec.
func (Msgpack) Marshal(v interface{}) ([]byte, error) { return msgpack.Marshal(v) }

// Unmarshal implements Codec.
func (Msgpack) Unmarshal(data []byte, v interface{}) error { return msgpack.Unmarshal(data, v) }

// Gob is a stdlib-only Codec. It is not self-describing across schema
// changes the way Msgpack's wire format is, and every Gob-encoded value
// pays the cost of its type descriptor on first use of a given type per
// Encoder, so it is not the default; it exists for callers who cannot take
// a third-party codec dependency.
type Gob struct{}

// Marshal implements Codec.
func (Gob) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Codec.
func (Gob) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
