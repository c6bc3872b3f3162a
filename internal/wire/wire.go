// Package wire implements the fixed 12-byte packet header every rto peer
// speaks, independent of whichever Transport carries the bytes and
// whichever Codec serializes the body.
package wire

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderSize is the fixed header length in bytes: three big-endian
	// uint32 fields, no varints, no optional sections.
	HeaderSize = 12

	// SlotSplit discriminates a request's slot field from a response's:
	// slot values below SlotSplit are responses keyed by the receiving
	// side's call-slot id, values at or above it are requests whose call
	// slot id is (slot - SlotSplit).
	SlotSplit = 1000

	// Delete is the reserved method id a request uses to release a
	// previously exported service object.
	Delete = 1234
)

// ErrShortFrame is returned by Decode when a frame is too small to contain
// a full header.
var ErrShortFrame = errors.New("wire: frame shorter than header")

// Header is the fixed envelope prefixed to every packet body.
type Header struct {
	Slot      uint32
	ServiceID uint32
	Method    uint32
}

// IsRequest reports whether this header belongs to the request sub-stream.
func (h Header) IsRequest() bool { return h.Slot >= SlotSplit }

// CorrelationID is the call-slot id this header correlates to: for a
// request it is the slot id the response should echo back; for a response
// it is the slot id the original caller is waiting on.
func (h Header) CorrelationID() uint32 {
	if h.IsRequest() {
		return h.Slot - SlotSplit
	}
	return h.Slot
}

// RequestSlot maps a local call-slot id to the wire slot value a request
// carries.
func RequestSlot(slotID uint32) uint32 { return SlotSplit + slotID }

// Packet is a decoded header plus its (still codec-serialized) body.
type Packet struct {
	Header Header
	Body   []byte
}

// EncodeHeader writes h's fields into the first HeaderSize bytes of buf.
func EncodeHeader(h Header, buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], h.Slot)
	binary.BigEndian.PutUint32(buf[4:8], h.ServiceID)
	binary.BigEndian.PutUint32(buf[8:12], h.Method)
}

// DecodeHeader reads a Header from the first HeaderSize bytes of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortFrame
	}
	return Header{
		Slot:      binary.BigEndian.Uint32(buf[0:4]),
		ServiceID: binary.BigEndian.Uint32(buf[4:8]),
		Method:    binary.BigEndian.Uint32(buf[8:12]),
	}, nil
}

// Encode serializes p as a single frame suitable for a Transport.Send.
func Encode(p Packet) []byte {
	buf := make([]byte, HeaderSize+len(p.Body))
	EncodeHeader(p.Header, buf)
	copy(buf[HeaderSize:], p.Body)
	return buf
}

// Decode is the inverse of Encode.
func Decode(frame []byte) (Packet, error) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return Packet{}, err
	}
	body := make([]byte, len(frame)-HeaderSize)
	copy(body, frame[HeaderSize:])
	return Packet{Header: h, Body: body}, nil
}
