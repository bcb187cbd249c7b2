package mixnet

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

// reencFactor is one block's re-encryption pair (g^r, y^r). Multiplying
// a ciphertext block by its factor yields an independent encryption of
// the same plaintext.
type reencFactor struct {
	GR *big.Int
	YR *big.Int
}

// Mapping is the explicit permutation plus re-encryption factors
// relating an input batch to a shuffled batch. Revealing a mapping
// reveals the association between input and output ciphertexts, so
// mappings are only ever disclosed for candidates opened during the
// cut-and-choose protocol.
type Mapping struct {
	perm    []int          // perm[i] = output slot of input ciphertext i
	factors [][]reencFactor // factors[i][blk], aligned with input order
}

// randomPermutation draws a uniform permutation of n elements via
// Fisher-Yates over crypto/rand.
func randomPermutation(n int) ([]int, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("failed to draw permutation: %w", err)
		}
		perm[i], perm[int(j.Int64())] = perm[int(j.Int64())], perm[i]
	}
	return perm, nil
}

// NewMapping generates a fresh random mapping compatible with the
// batch: a uniform permutation and one fresh re-encryption exponent per
// ciphertext block.
func NewMapping(pub *elgamal.PublicKey, batch *Batch) (*Mapping, error) {
	params := pub.Params

	perm, err := randomPermutation(batch.Size())
	if err != nil {
		return nil, err
	}

	factors := make([][]reencFactor, batch.Size())
	for i, ct := range batch.Ciphertexts {
		factors[i] = make([]reencFactor, len(ct.Blocks))
		for blk := range ct.Blocks {
			r, err := params.RandomExponent()
			if err != nil {
				return nil, err
			}
			factors[i][blk] = reencFactor{
				GR: params.Exp(params.G, r),
				YR: params.Exp(pub.Y, r),
			}
		}
	}

	return &Mapping{perm: perm, factors: factors}, nil
}

// Apply shuffles the batch under the mapping: input ciphertext i is
// block-wise multiplied by its re-encryption factors and moved to slot
// perm[i].
func (m *Mapping) Apply(params *group.Parameters, batch *Batch) (*Batch, error) {
	if batch.Size() != len(m.perm) {
		return nil, fmt.Errorf("mapping is for %d ciphertexts, batch has %d", len(m.perm), batch.Size())
	}

	out := make([]*elgamal.Ciphertext, batch.Size())
	for i, ct := range batch.Ciphertexts {
		if len(m.factors[i]) != len(ct.Blocks) {
			return nil, fmt.Errorf("mapping block count mismatch at ciphertext %d", i)
		}
		re := &elgamal.Ciphertext{
			PublicKeyFingerprint: ct.PublicKeyFingerprint,
			Blocks:               make([]elgamal.CiphertextBlock, len(ct.Blocks)),
		}
		for blk, pair := range ct.Blocks {
			f := m.factors[i][blk]
			re.Blocks[blk] = elgamal.CiphertextBlock{
				A: params.Mul(pair.A, f.GR),
				B: params.Mul(pair.B, f.YR),
			}
		}
		out[m.perm[i]] = re
	}

	return &Batch{
		PublicKeyFingerprint: batch.PublicKeyFingerprint,
		Ciphertexts:          out,
	}, nil
}

// Matches reports whether out is exactly the result of applying the
// mapping to in. This check is not zero-knowledge: it is used on opened
// candidates, where disclosing the mapping is the point.
func (m *Mapping) Matches(params *group.Parameters, in, out *Batch) bool {
	applied, err := m.Apply(params, in)
	if err != nil {
		return false
	}
	return applied.Equal(out)
}

// linkTo returns the mapping that carries m's image batch to out's
// image batch: for a candidate batch produced by applying m to some
// input, applying the link yields exactly the batch out produces from
// the same input. The link is out composed with the inverse of m;
// factors divide out, so the link discloses nothing about m's
// permutation of the input.
func (m *Mapping) linkTo(params *group.Parameters, out *Mapping) (*Mapping, error) {
	if len(m.perm) != len(out.perm) {
		return nil, fmt.Errorf("cannot link mappings of different sizes %d and %d", len(m.perm), len(out.perm))
	}

	perm := make([]int, len(m.perm))
	factors := make([][]reencFactor, len(m.perm))
	for i := range m.perm {
		s := m.perm[i]
		perm[s] = out.perm[i]

		if len(m.factors[i]) != len(out.factors[i]) {
			return nil, fmt.Errorf("cannot link mappings with mismatched block counts at ciphertext %d", i)
		}
		factors[s] = make([]reencFactor, len(m.factors[i]))
		for blk := range m.factors[i] {
			factors[s][blk] = reencFactor{
				GR: params.Mul(out.factors[i][blk].GR, params.Inverse(m.factors[i][blk].GR)),
				YR: params.Mul(out.factors[i][blk].YR, params.Inverse(m.factors[i][blk].YR)),
			}
		}
	}
	return &Mapping{perm: perm, factors: factors}, nil
}

// Compose returns the mapping equivalent to applying m first and next
// second: the permutations compose and the re-encryption factors
// aggregate multiplicatively. Used to fold the unopened candidates into
// the single output mapping.
func (m *Mapping) Compose(params *group.Parameters, next *Mapping) (*Mapping, error) {
	if len(m.perm) != len(next.perm) {
		return nil, fmt.Errorf("cannot compose mappings of different sizes %d and %d", len(m.perm), len(next.perm))
	}

	perm := make([]int, len(m.perm))
	factors := make([][]reencFactor, len(m.perm))
	for i := range m.perm {
		mid := m.perm[i]
		perm[i] = next.perm[mid]

		if len(m.factors[i]) != len(next.factors[mid]) {
			return nil, fmt.Errorf("cannot compose mappings with mismatched block counts at ciphertext %d", i)
		}
		factors[i] = make([]reencFactor, len(m.factors[i]))
		for blk := range m.factors[i] {
			factors[i][blk] = reencFactor{
				GR: params.Mul(m.factors[i][blk].GR, next.factors[mid][blk].GR),
				YR: params.Mul(m.factors[i][blk].YR, next.factors[mid][blk].YR),
			}
		}
	}

	return &Mapping{perm: perm, factors: factors}, nil
}
