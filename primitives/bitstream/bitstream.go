// Package bitstream implements a bit-level read/write cursor over an
// in-memory buffer. It carries no protocol logic; the block codec uses
// it to pack length-framed byte messages into group-sized bit blocks
// whose width is not a multiple of eight.
//
// Bits are written and read most-significant first. A width of up to 64
// bits per call is supported.
package bitstream

import "fmt"

// Stream is a growable bit buffer with a read cursor. The zero value is
// an empty stream ready for writing.
type Stream struct {
	bits []byte // one bit per entry, values 0 or 1
	pos  int    // read cursor
}

// New returns an empty stream.
func New() *Stream {
	return &Stream{}
}

// WriteBits appends the width lowest bits of v, most significant first.
// It panics if width is outside [0, 64] or v does not fit in width
// bits; the codec always writes values it just masked.
func (s *Stream) WriteBits(v uint64, width int) {
	if width < 0 || width > 64 {
		panic(fmt.Sprintf("bitstream: invalid write width %d", width))
	}
	if width < 64 && v>>uint(width) != 0 {
		panic(fmt.Sprintf("bitstream: value %d does not fit in %d bits", v, width))
	}
	for i := width - 1; i >= 0; i-- {
		s.bits = append(s.bits, byte(v>>uint(i)&1))
	}
}

// ReadBits consumes width bits from the cursor, most significant first.
func (s *Stream) ReadBits(width int) (uint64, error) {
	if width < 0 || width > 64 {
		return 0, fmt.Errorf("bitstream: invalid read width %d", width)
	}
	if s.pos+width > len(s.bits) {
		return 0, fmt.Errorf("bitstream: read of %d bits past end of stream (%d of %d bits consumed)",
			width, s.pos, len(s.bits))
	}
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<1 | uint64(s.bits[s.pos])
		s.pos++
	}
	return v, nil
}

// BitLength returns the total number of bits written to the stream.
func (s *Stream) BitLength() int {
	return len(s.bits)
}

// Remaining returns the number of unread bits.
func (s *Stream) Remaining() int {
	return len(s.bits) - s.pos
}

// Seek moves the read cursor to the given absolute bit position.
func (s *Stream) Seek(pos int) error {
	if pos < 0 || pos > len(s.bits) {
		return fmt.Errorf("bitstream: seek to %d outside stream of %d bits", pos, len(s.bits))
	}
	s.pos = pos
	return nil
}
