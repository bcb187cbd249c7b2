// Package msgpack provides canonical msgpack encoding and decoding
// for the structured records and hash transcripts used by the library.
// Canonical encoding guarantees that encoding the same value twice
// yields byte-identical output, which the persistence records and the
// Fiat-Shamir transcripts both rely on.
package msgpack

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

var msgpackHandle = newHandle()

func newHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	h.WriteExt = true
	return h
}

// Encode serializes v into canonical msgpack bytes.
// It panics on unencodable values, which is a programming error:
// all values passed here are this library's own record structs.
func Encode(v interface{}) []byte {
	var out []byte
	enc := codec.NewEncoderBytes(&out, msgpackHandle)
	if err := enc.Encode(v); err != nil {
		panic(fmt.Sprintf("msgpack: failed to encode %T: %v", v, err))
	}
	return out
}

// Decode deserializes canonical msgpack bytes into v.
// Unlike Encode, the input may come from outside the process, so
// failures are returned rather than panicking.
func Decode(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, msgpackHandle)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("msgpack: failed to decode into %T: %w", v, err)
	}
	return nil
}
