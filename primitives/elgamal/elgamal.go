// Package elgamal implements ElGamal key material and ciphertext
// algebra over a validated domain-parameter group: key generation,
// per-element encryption and decryption, homomorphic re-randomization,
// and the multi-block byte APIs built on the block codec.
//
// Every ciphertext component is required to be a member of the order-q
// subgroup; values failing that check are rejected as malformed rather
// than processed.
package elgamal

import (
	"fmt"
	"math/big"

	"github.com/openaudit/go-electioncrypt/primitives/group"
)

// InvalidKeyError reports a key value outside its valid range.
type InvalidKeyError struct {
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key: %s", e.Reason)
}

// InvalidCiphertextError reports a ciphertext component that is not a
// member of the order-q subgroup, or a structurally broken ciphertext.
type InvalidCiphertextError struct {
	Block  int // index of the offending block, -1 when structural
	Reason string
}

func (e *InvalidCiphertextError) Error() string {
	if e.Block >= 0 {
		return fmt.Sprintf("invalid ciphertext at block %d: %s", e.Block, e.Reason)
	}
	return fmt.Sprintf("invalid ciphertext: %s", e.Reason)
}

// PublicKey is an ElGamal public key y = g^x over its group.
type PublicKey struct {
	Params *group.Parameters
	Y      *big.Int
}

// PrivateKey holds the private exponent x. It is owned exclusively by
// the party that generated it (or, under the threshold scheme, by the
// holder of a share of it) and must never cross that trust boundary.
type PrivateKey struct {
	Params *group.Parameters
	X      *big.Int
}

// KeyPair bundles the two halves at generation time.
type KeyPair struct {
	Public  *PublicKey
	Private *PrivateKey
}

// NewPublicKey validates y as a subgroup element.
func NewPublicKey(params *group.Parameters, y *big.Int) (*PublicKey, error) {
	if !params.IsElement(y) {
		return nil, &InvalidKeyError{Reason: "public value is not a subgroup element"}
	}
	return &PublicKey{Params: params, Y: new(big.Int).Set(y)}, nil
}

// NewPrivateKey validates x in [1, q-1].
func NewPrivateKey(params *group.Parameters, x *big.Int) (*PrivateKey, error) {
	if x == nil || x.Sign() <= 0 || x.Cmp(params.Q) >= 0 {
		return nil, &InvalidKeyError{Reason: "private exponent outside [1, q-1]"}
	}
	return &PrivateKey{Params: params, X: new(big.Int).Set(x)}, nil
}

// GenerateKeyPair draws x uniformly from [1, q-1] and derives y = g^x.
func GenerateKeyPair(params *group.Parameters) (*KeyPair, error) {
	x, err := params.RandomExponent()
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		Public:  &PublicKey{Params: params, Y: params.Exp(params.G, x)},
		Private: &PrivateKey{Params: params, X: x},
	}, nil
}

// PublicKey derives the public half from a private key.
func (priv *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{
		Params: priv.Params,
		Y:      priv.Params.Exp(priv.Params.G, priv.X),
	}
}

// EncryptElement encrypts a single subgroup element m as
// (a, b) = (g^r, m*y^r) with a fresh internal ephemeral r. There is
// deliberately no way to supply r from outside: randomness reuse across
// blocks or ciphertexts breaks the scheme.
func (pub *PublicKey) EncryptElement(m *big.Int) (CiphertextBlock, error) {
	if !pub.Params.IsElement(m) {
		return CiphertextBlock{}, fmt.Errorf("plaintext element is not a subgroup member")
	}
	r, err := pub.Params.RandomExponent()
	if err != nil {
		return CiphertextBlock{}, err
	}
	return CiphertextBlock{
		A: pub.Params.Exp(pub.Params.G, r),
		B: pub.Params.Mul(m, pub.Params.Exp(pub.Y, r)),
	}, nil
}

// DecryptElement recovers m = b * a^-x. It fails with
// InvalidCiphertextError when either component is outside the order-q
// subgroup.
func (priv *PrivateKey) DecryptElement(blk CiphertextBlock) (*big.Int, error) {
	if err := blk.validate(priv.Params, 0); err != nil {
		return nil, err
	}
	shared := priv.Params.Exp(blk.A, priv.X)
	return priv.Params.Mul(blk.B, priv.Params.Inverse(shared)), nil
}
