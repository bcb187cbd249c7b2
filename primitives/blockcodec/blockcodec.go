// Package blockcodec encodes arbitrary-length byte messages as
// sequences of group elements and back. Messages are framed with a
// 64-bit length field, zero-padded to a whole number of blocks, and cut
// into blocks one bit narrower than the subgroup order so every block
// value fits strictly below q. Block values are then lifted into the
// order-q subgroup, so that both halves of every ciphertext are
// subgroup elements.
package blockcodec

import (
	"fmt"
	"math/big"

	"github.com/openaudit/go-electioncrypt/primitives/bitstream"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

// lengthFieldBits is the size of the message-length prefix. Eight bytes
// bounds messages at 2^64-1 bytes, far beyond anything encryptable.
const lengthFieldBits = 64

// chunkBits is the width used when moving bits between the bit stream
// and big integers.
const chunkBits = 32

var bigOne = big.NewInt(1)

// EncodingError reports a length, padding or range inconsistency while
// encoding or decoding.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("plaintext encoding error: %s", e.Reason)
}

// BlockBits returns the message block width in bits for the group: one
// bit of headroom below q, so every block value maps injectively into
// [0, q).
func BlockBits(params *group.Parameters) int {
	return params.Q.BitLen() - 1
}

// BlockCount returns the number of blocks Encode produces for a message
// of the given byte length.
func BlockCount(params *group.Parameters, messageLen int) int {
	blockBits := BlockBits(params)
	totalBits := lengthFieldBits + 8*messageLen
	return (totalBits + blockBits - 1) / blockBits
}

// Encode splits msg into block-sized integers in [0, 2^BlockBits).
// The output layout is: 64-bit big-endian byte length, message bytes,
// zero padding up to a block boundary.
func Encode(params *group.Parameters, msg []byte) ([]*big.Int, error) {
	blockBits := BlockBits(params)
	if blockBits < 1 {
		return nil, &EncodingError{Reason: "subgroup order too small for block encoding"}
	}

	s := bitstream.New()
	s.WriteBits(uint64(len(msg)), lengthFieldBits)
	for _, b := range msg {
		s.WriteBits(uint64(b), 8)
	}
	for s.BitLength()%blockBits != 0 {
		pad := blockBits - s.BitLength()%blockBits
		if pad > chunkBits {
			pad = chunkBits
		}
		s.WriteBits(0, pad)
	}

	if err := s.Seek(0); err != nil {
		return nil, &EncodingError{Reason: err.Error()}
	}

	blocks := make([]*big.Int, 0, s.BitLength()/blockBits)
	for s.Remaining() > 0 {
		v, err := readBig(s, blockBits)
		if err != nil {
			return nil, &EncodingError{Reason: err.Error()}
		}
		blocks = append(blocks, v)
	}
	return blocks, nil
}

// Decode reassembles the byte message from block values. It fails with
// EncodingError when a block is out of range, the framed length is
// inconsistent with the block count, or the padding is not zero.
func Decode(params *group.Parameters, blocks []*big.Int) ([]byte, error) {
	blockBits := BlockBits(params)
	if blockBits < 1 {
		return nil, &EncodingError{Reason: "subgroup order too small for block encoding"}
	}
	if len(blocks) == 0 {
		return nil, &EncodingError{Reason: "no blocks to decode"}
	}

	s := bitstream.New()
	for i, v := range blocks {
		if v == nil || v.Sign() < 0 || v.BitLen() > blockBits {
			return nil, &EncodingError{Reason: fmt.Sprintf("block %d out of range", i)}
		}
		writeBig(s, v, blockBits)
	}
	if err := s.Seek(0); err != nil {
		return nil, &EncodingError{Reason: err.Error()}
	}

	msgLen, err := s.ReadBits(lengthFieldBits)
	if err != nil {
		return nil, &EncodingError{Reason: err.Error()}
	}
	totalBits := len(blocks) * blockBits
	if msgLen > uint64(totalBits)/8 || lengthFieldBits+8*msgLen > uint64(totalBits) {
		return nil, &EncodingError{Reason: fmt.Sprintf(
			"framed length %d bytes exceeds %d available blocks", msgLen, len(blocks))}
	}
	if BlockCount(params, int(msgLen)) != len(blocks) {
		return nil, &EncodingError{Reason: fmt.Sprintf(
			"framed length %d bytes inconsistent with block count %d", msgLen, len(blocks))}
	}

	msg := make([]byte, msgLen)
	for i := range msg {
		b, err := s.ReadBits(8)
		if err != nil {
			return nil, &EncodingError{Reason: err.Error()}
		}
		msg[i] = byte(b)
	}

	for s.Remaining() > 0 {
		w := s.Remaining()
		if w > chunkBits {
			w = chunkBits
		}
		pad, err := s.ReadBits(w)
		if err != nil {
			return nil, &EncodingError{Reason: err.Error()}
		}
		if pad != 0 {
			return nil, &EncodingError{Reason: "nonzero padding"}
		}
	}

	return msg, nil
}

// Lift maps a block value v in [0, q-1] to an element of the order-q
// subgroup. It requires a safe-prime group (p = 2q+1), where the
// subgroup is the quadratic residues and exactly one of v+1 and p-(v+1)
// is a residue.
func Lift(params *group.Parameters, v *big.Int) (*big.Int, error) {
	if err := requireSafePrime(params); err != nil {
		return nil, err
	}
	if v == nil || v.Sign() < 0 || v.Cmp(params.Q) >= 0 {
		return nil, &EncodingError{Reason: "block value out of range [0, q-1]"}
	}

	m := new(big.Int).Add(v, bigOne)
	if params.IsElement(m) {
		return m, nil
	}
	return m.Sub(params.P, m), nil
}

// Unlift inverts Lift. The element halves {m, p-m} sum to p = 2q+1, so
// exactly one of them lies in [1, q].
func Unlift(params *group.Parameters, m *big.Int) (*big.Int, error) {
	if err := requireSafePrime(params); err != nil {
		return nil, err
	}
	if !params.IsElement(m) {
		return nil, &EncodingError{Reason: "value to unlift is not a subgroup element"}
	}

	v := new(big.Int)
	if m.Cmp(params.Q) <= 0 {
		v.Sub(m, bigOne)
	} else {
		v.Sub(params.P, m)
		v.Sub(v, bigOne)
	}
	return v, nil
}

func requireSafePrime(params *group.Parameters) error {
	p := new(big.Int).Lsh(params.Q, 1)
	p.Add(p, bigOne)
	if p.Cmp(params.P) != 0 {
		return &EncodingError{Reason: "byte encoding requires a safe-prime group (p = 2q+1)"}
	}
	return nil
}

func readBig(s *bitstream.Stream, width int) (*big.Int, error) {
	v := new(big.Int)
	for width > 0 {
		w := width
		if w > chunkBits {
			w = chunkBits
		}
		chunk, err := s.ReadBits(w)
		if err != nil {
			return nil, err
		}
		v.Lsh(v, uint(w))
		v.Or(v, new(big.Int).SetUint64(chunk))
		width -= w
	}
	return v, nil
}

func writeBig(s *bitstream.Stream, v *big.Int, width int) {
	mask := uint64(1)<<chunkBits - 1
	for width > 0 {
		w := width
		if w > chunkBits {
			w = chunkBits
		}
		shifted := new(big.Int).Rsh(v, uint(width-w))
		s.WriteBits(shifted.Uint64()&(mask>>uint(chunkBits-w)), w)
		width -= w
	}
}
