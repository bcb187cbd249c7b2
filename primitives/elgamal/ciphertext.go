package elgamal

import (
	"bytes"
	"math/big"

	"github.com/openaudit/go-electioncrypt/primitives/blockcodec"
	"github.com/openaudit/go-electioncrypt/primitives/group"
	"github.com/openaudit/go-electioncrypt/progress"
)

// CiphertextBlock is one ElGamal pair (a, b), both subgroup elements.
type CiphertextBlock struct {
	A *big.Int
	B *big.Int
}

// Ciphertext is the ordered sequence of blocks produced by encrypting
// an encoded plaintext, tagged with the fingerprint of the public key
// it was encrypted under. It is immutable value data: operations return
// new ciphertexts and never alias block integers for mutation.
type Ciphertext struct {
	// PublicKeyFingerprint ties the ciphertext to its encryption key so
	// re-randomization and mixing cannot silently cross keys.
	PublicKeyFingerprint []byte

	Blocks []CiphertextBlock
}

func (blk CiphertextBlock) validate(params *group.Parameters, index int) error {
	if blk.A == nil || blk.B == nil {
		return &InvalidCiphertextError{Block: index, Reason: "missing component"}
	}
	if !params.IsElement(blk.A) {
		return &InvalidCiphertextError{Block: index, Reason: "first component not in order-q subgroup"}
	}
	if !params.IsElement(blk.B) {
		return &InvalidCiphertextError{Block: index, Reason: "second component not in order-q subgroup"}
	}
	return nil
}

// Validate checks every block of the ciphertext for subgroup
// membership. Malformed ciphertexts must be rejected before any
// processing; this is the library's defense against small-subgroup
// confinement.
func (ct *Ciphertext) Validate(params *group.Parameters) error {
	if ct == nil || len(ct.Blocks) == 0 {
		return &InvalidCiphertextError{Block: -1, Reason: "empty ciphertext"}
	}
	for i, blk := range ct.Blocks {
		if err := blk.validate(params, i); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports block-wise equality.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	if other == nil || len(ct.Blocks) != len(other.Blocks) {
		return false
	}
	if !bytes.Equal(ct.PublicKeyFingerprint, other.PublicKeyFingerprint) {
		return false
	}
	for i := range ct.Blocks {
		if ct.Blocks[i].A.Cmp(other.Blocks[i].A) != 0 ||
			ct.Blocks[i].B.Cmp(other.Blocks[i].B) != 0 {
			return false
		}
	}
	return true
}

// EncryptBytes encodes msg with the block codec, lifts each block into
// the subgroup, and encrypts each block independently with fresh
// randomness. The optional reporter is told about per-block progress.
func (pub *PublicKey) EncryptBytes(msg []byte, rep progress.Reporter) (*Ciphertext, error) {
	blocks, err := blockcodec.Encode(pub.Params, msg)
	if err != nil {
		return nil, err
	}

	ct := &Ciphertext{
		PublicKeyFingerprint: pub.Fingerprint(),
		Blocks:               make([]CiphertextBlock, len(blocks)),
	}
	for i, v := range blocks {
		m, err := blockcodec.Lift(pub.Params, v)
		if err != nil {
			return nil, err
		}
		ct.Blocks[i], err = pub.EncryptElement(m)
		if err != nil {
			return nil, err
		}
		progress.Report(rep, i+1, len(blocks))
	}
	return ct, nil
}

// DecryptBytes decrypts every block, unlifts the results and decodes
// the framed byte message.
func (priv *PrivateKey) DecryptBytes(ct *Ciphertext, rep progress.Reporter) ([]byte, error) {
	if err := ct.Validate(priv.Params); err != nil {
		return nil, err
	}

	values := make([]*big.Int, len(ct.Blocks))
	for i, blk := range ct.Blocks {
		m, err := priv.DecryptElement(blk)
		if err != nil {
			return nil, err
		}
		values[i], err = blockcodec.Unlift(priv.Params, m)
		if err != nil {
			return nil, err
		}
		progress.Report(rep, i+1, len(ct.Blocks))
	}
	return blockcodec.Decode(priv.Params, values)
}

// RerandomizeBlock returns an independent encryption of the same
// plaintext element: (a*g^r', b*y^r') with fresh r'.
func (pub *PublicKey) RerandomizeBlock(blk CiphertextBlock) (CiphertextBlock, error) {
	if err := blk.validate(pub.Params, 0); err != nil {
		return CiphertextBlock{}, err
	}
	r, err := pub.Params.RandomExponent()
	if err != nil {
		return CiphertextBlock{}, err
	}
	return CiphertextBlock{
		A: pub.Params.Mul(blk.A, pub.Params.Exp(pub.Params.G, r)),
		B: pub.Params.Mul(blk.B, pub.Params.Exp(pub.Y, r)),
	}, nil
}

// Rerandomize re-randomizes every block of the ciphertext with
// independent fresh randomness. The result decrypts identically but is
// indistinguishable from an unrelated ciphertext.
func (pub *PublicKey) Rerandomize(ct *Ciphertext) (*Ciphertext, error) {
	if err := ct.Validate(pub.Params); err != nil {
		return nil, err
	}
	if !bytes.Equal(ct.PublicKeyFingerprint, pub.Fingerprint()) {
		return nil, &InvalidCiphertextError{Block: -1, Reason: "ciphertext was encrypted under a different key"}
	}

	out := &Ciphertext{
		PublicKeyFingerprint: ct.PublicKeyFingerprint,
		Blocks:               make([]CiphertextBlock, len(ct.Blocks)),
	}
	for i, blk := range ct.Blocks {
		reblk, err := pub.RerandomizeBlock(blk)
		if err != nil {
			return nil, err
		}
		out.Blocks[i] = reblk
	}
	return out, nil
}
