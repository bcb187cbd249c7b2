package threshold

import (
	"math/big"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
	"github.com/openaudit/go-electioncrypt/primitives/group"
	"github.com/openaudit/go-electioncrypt/primitives/nizk"
	"github.com/openaudit/go-electioncrypt/progress"
)

// PartialBlock is one block's partial decryption d = a^{x_i} together
// with the proof that d was computed with the same exponent that the
// trustee's public share commits to.
type PartialBlock struct {
	D     *big.Int
	Proof *nizk.DLEQProof
}

// PartialDecryption is one trustee's contribution to decrypting a
// ciphertext: one PartialBlock per ciphertext block. It is ephemeral
// data, produced on demand and consumed by Combine.
type PartialDecryption struct {
	TrusteeIndex int
	Blocks       []PartialBlock
}

// PartialDecrypt computes the trustee's partial decryption of every
// ciphertext block, each with a Chaum-Pedersen proof that
// log_g(g^{x_i}) = log_a(d). Blocks are independent and are computed in
// parallel. Malformed ciphertexts are rejected up front.
func PartialDecrypt(params *group.Parameters, share Share, ct *elgamal.Ciphertext, rep progress.Reporter) (*PartialDecryption, error) {
	if err := ct.Validate(params); err != nil {
		return nil, err
	}
	if share.Index < 1 || share.Value == nil {
		return nil, &InvalidPartialError{TrusteeIndex: share.Index, Reason: "malformed share"}
	}
	if share.Value.Sign() <= 0 || share.Value.Cmp(params.Q) >= 0 {
		return nil, &InvalidPartialError{TrusteeIndex: share.Index, Reason: "share value outside [1, q-1]"}
	}

	publicShare := params.Exp(params.G, share.Value)

	pd := &PartialDecryption{
		TrusteeIndex: share.Index,
		Blocks:       make([]PartialBlock, len(ct.Blocks)),
	}

	var g errgroup.Group
	var completed int32
	for i := range ct.Blocks {
		i := i
		g.Go(func() error {
			a := ct.Blocks[i].A
			d := params.Exp(a, share.Value)
			proof, err := nizk.DLEQProve(params, nizk.DLEQStatement{
				G1: params.G,
				H1: publicShare,
				G2: a,
				H2: d,
			}, share.Value)
			if err != nil {
				return err
			}
			pd.Blocks[i] = PartialBlock{D: d, Proof: proof}
			progress.Report(rep, int(atomic.AddInt32(&completed, 1)), len(ct.Blocks))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pd, nil
}

// VerifyPartial checks a trustee's partial decryption against its
// public share g^{x_i} (derived from the published commitments) and the
// ciphertext it claims to decrypt. A nil result means every block's
// proof verified; verification failures are fail-closed.
func VerifyPartial(params *group.Parameters, publicShare *big.Int, ct *elgamal.Ciphertext, pd *PartialDecryption) error {
	if pd == nil {
		return &InvalidPartialError{TrusteeIndex: 0, Reason: "missing partial decryption"}
	}
	if err := ct.Validate(params); err != nil {
		return err
	}
	if len(pd.Blocks) != len(ct.Blocks) {
		return &InvalidPartialError{
			TrusteeIndex: pd.TrusteeIndex,
			Reason:       "block count does not match ciphertext",
		}
	}

	for i, blk := range pd.Blocks {
		if blk.D == nil || !params.IsElement(blk.D) {
			return &InvalidPartialError{
				TrusteeIndex: pd.TrusteeIndex,
				Reason:       "partial value is not a subgroup element",
			}
		}
		stmt := nizk.DLEQStatement{
			G1: params.G,
			H1: publicShare,
			G2: ct.Blocks[i].A,
			H2: blk.D,
		}
		if err := nizk.DLEQVerify(params, stmt, blk.Proof); err != nil {
			return &InvalidPartialError{
				TrusteeIndex: pd.TrusteeIndex,
				Reason:       err.Error(),
			}
		}
	}
	return nil
}
