package threshold

import (
	"math/big"

	"github.com/openaudit/go-electioncrypt/primitives/blockcodec"
	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

// lagrangeCoefficient computes lambda_i(0) = prod_{j != i} j/(j-i)
// over Z_q for the participating index set. Exponents of subgroup
// elements live modulo q, which is prime, so Z_q is a field.
func lagrangeCoefficient(params *group.Parameters, indices []int, i int) *big.Int {
	num := new(big.Int).Set(bigOne)
	den := new(big.Int).Set(bigOne)
	for _, j := range indices {
		if j == i {
			continue
		}
		num.Mul(num, big.NewInt(int64(j)))
		num.Mod(num, params.Q)
		den.Mul(den, big.NewInt(int64(j-i)))
		den.Mod(den, params.Q)
	}
	den.ModInverse(den, params.Q)
	num.Mul(num, den)
	return num.Mod(num, params.Q)
}

// CombineElements combines partial decryptions of one ciphertext into
// the decrypted subgroup elements, one per block, by Lagrange
// interpolation in the exponent: m = b / prod_i d_i^{lambda_i}. The
// shared private exponent is never reconstructed.
//
// Every supplied partial is checked against the published commitments;
// a failing partial aborts with InvalidPartialError naming its trustee,
// a duplicate index likewise. Fewer than k distinct verified partials
// fail with InsufficientSharesError.
func CombineElements(params *group.Parameters, ct *elgamal.Ciphertext, commitments Commitments, k int, partials []*PartialDecryption) ([]*big.Int, error) {
	if err := ct.Validate(params); err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, &InvalidThresholdError{N: len(partials), K: k}
	}

	seen := make(map[int]bool, len(partials))
	verified := make([]*PartialDecryption, 0, len(partials))
	for _, pd := range partials {
		if pd == nil {
			continue
		}
		if pd.TrusteeIndex < 1 {
			return nil, &InvalidPartialError{TrusteeIndex: pd.TrusteeIndex, Reason: "index out of range"}
		}
		if seen[pd.TrusteeIndex] {
			return nil, &InvalidPartialError{TrusteeIndex: pd.TrusteeIndex, Reason: "duplicate trustee index"}
		}
		seen[pd.TrusteeIndex] = true

		publicShare := commitments.PublicShare(params, pd.TrusteeIndex)
		if err := VerifyPartial(params, publicShare, ct, pd); err != nil {
			return nil, err
		}
		verified = append(verified, pd)
	}

	if len(verified) < k {
		return nil, &InsufficientSharesError{Have: len(verified), Need: k}
	}

	indices := make([]int, len(verified))
	for i, pd := range verified {
		indices[i] = pd.TrusteeIndex
	}

	elements := make([]*big.Int, len(ct.Blocks))
	for blk := range ct.Blocks {
		// prod_i d_i^{lambda_i} = a^{f(0)} = a^x
		ax := new(big.Int).Set(bigOne)
		for _, pd := range verified {
			lambda := lagrangeCoefficient(params, indices, pd.TrusteeIndex)
			ax = params.Mul(ax, params.Exp(pd.Blocks[blk].D, lambda))
		}
		elements[blk] = params.Mul(ct.Blocks[blk].B, params.Inverse(ax))
	}
	return elements, nil
}

// Combine runs CombineElements and decodes the resulting blocks back
// into the original byte message.
func Combine(params *group.Parameters, ct *elgamal.Ciphertext, commitments Commitments, k int, partials []*PartialDecryption) ([]byte, error) {
	elements, err := CombineElements(params, ct, commitments, k, partials)
	if err != nil {
		return nil, err
	}

	values := make([]*big.Int, len(elements))
	for i, m := range elements {
		values[i], err = blockcodec.Unlift(params, m)
		if err != nil {
			return nil, err
		}
	}
	return blockcodec.Decode(params, values)
}
