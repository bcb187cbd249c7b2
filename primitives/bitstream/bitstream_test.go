package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	s := New()
	s.WriteBits(0xAB, 8)
	s.WriteBits(0x3, 2)
	s.WriteBits(0x1FFF, 13)
	s.WriteBits(0, 5)
	s.WriteBits(0xFFFFFFFFFFFFFFFF, 64)

	assert.Equal(8+2+13+5+64, s.BitLength())

	v, err := s.ReadBits(8)
	require.NoError(err)
	assert.Equal(uint64(0xAB), v)

	v, err = s.ReadBits(2)
	require.NoError(err)
	assert.Equal(uint64(0x3), v)

	v, err = s.ReadBits(13)
	require.NoError(err)
	assert.Equal(uint64(0x1FFF), v)

	v, err = s.ReadBits(5)
	require.NoError(err)
	assert.Equal(uint64(0), v)

	v, err = s.ReadBits(64)
	require.NoError(err)
	assert.Equal(uint64(0xFFFFFFFFFFFFFFFF), v)

	assert.Equal(0, s.Remaining())
}

func TestReadsCrossWriteBoundaries(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	s := New()
	s.WriteBits(0xA5, 8) // 10100101
	s.WriteBits(0x0F, 8) // 00001111

	v, err := s.ReadBits(4)
	require.NoError(err)
	assert.Equal(uint64(0xA), v)

	v, err = s.ReadBits(8)
	require.NoError(err)
	assert.Equal(uint64(0x50), v)

	v, err = s.ReadBits(4)
	require.NoError(err)
	assert.Equal(uint64(0xF), v)
}

func TestReadPastEnd(t *testing.T) {
	assert := assert.New(t)

	s := New()
	s.WriteBits(0x7, 3)

	_, err := s.ReadBits(4)
	assert.Error(err)

	// The failed read must not consume anything.
	v, err := s.ReadBits(3)
	assert.NoError(err)
	assert.Equal(uint64(0x7), v)
}

func TestZeroWidth(t *testing.T) {
	assert := assert.New(t)

	s := New()
	s.WriteBits(0, 0)
	assert.Equal(0, s.BitLength())

	v, err := s.ReadBits(0)
	assert.NoError(err)
	assert.Equal(uint64(0), v)
}

func TestInvalidWidthPanics(t *testing.T) {
	assert := assert.New(t)

	s := New()
	assert.Panics(func() { s.WriteBits(0, -1) })
	assert.Panics(func() { s.WriteBits(0, 65) })
	assert.Panics(func() { s.WriteBits(0x10, 4) }, "value wider than the declared width")
}

func TestInvalidReadWidth(t *testing.T) {
	assert := assert.New(t)

	s := New()
	s.WriteBits(0, 8)

	_, err := s.ReadBits(-1)
	assert.Error(err)
	_, err = s.ReadBits(65)
	assert.Error(err)
}

func TestSeek(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	s := New()
	s.WriteBits(0xC3, 8)

	_, err := s.ReadBits(8)
	require.NoError(err)
	assert.Equal(0, s.Remaining())

	require.NoError(s.Seek(0))
	assert.Equal(8, s.Remaining())

	v, err := s.ReadBits(8)
	require.NoError(err)
	assert.Equal(uint64(0xC3), v)

	assert.Error(s.Seek(-1))
	assert.Error(s.Seek(9))
	assert.NoError(s.Seek(8), "seeking to the end is allowed")
}
