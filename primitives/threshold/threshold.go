// Package threshold implements k-of-n Shamir-style sharing of an
// ElGamal private exponent with verifiable shares, per-trustee partial
// decryption carrying a Chaum-Pedersen correctness proof, and the
// Lagrange combination of verified partials into the plaintext. The
// private exponent itself is never reconstructed: interpolation happens
// in the exponent.
package threshold

import (
	"fmt"
	"math/big"

	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

var bigOne = big.NewInt(1)

// InvalidThresholdError reports a misconfigured k-of-n scheme.
type InvalidThresholdError struct {
	N int
	K int
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold configuration: k=%d, n=%d", e.K, e.N)
}

// InvalidPartialError names the trustee whose partial decryption failed
// its proof check (or was otherwise unusable).
type InvalidPartialError struct {
	TrusteeIndex int
	Reason       string
}

func (e *InvalidPartialError) Error() string {
	return fmt.Sprintf("invalid partial decryption from trustee %d: %s", e.TrusteeIndex, e.Reason)
}

// InsufficientSharesError reports a combination attempt with fewer than
// k verified partial decryptions.
type InsufficientSharesError struct {
	Have int
	Need int
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient partial decryptions: have %d verified, need %d", e.Have, e.Need)
}

// Share is one trustee's evaluation f(i) of the sharing polynomial.
// It is held by its trustee alone and never crosses that trust
// boundary.
type Share struct {
	Index int // trustee index i in 1..n
	Value *big.Int
}

// Commitments are the published coefficient commitments C_j = g^{a_j}.
// C_0 is the public key value y. They are public, immutable, and let
// any trustee verify its own share without learning the others.
type Commitments []*big.Int

// polynomial over Z_q with f(0) = the shared secret.
type polynomial struct {
	coefficients []*big.Int
}

// newSecretPolynomial builds f(u) = a_0 + a_1*u + ... + a_{k-1}*u^{k-1}
// with a_0 = secret and random remaining coefficients.
func newSecretPolynomial(params *group.Parameters, secret *big.Int, k int) (*polynomial, error) {
	f := &polynomial{coefficients: make([]*big.Int, k)}
	f.coefficients[0] = new(big.Int).Set(secret)
	for j := 1; j < k; j++ {
		c, err := params.RandomExponent()
		if err != nil {
			return nil, err
		}
		f.coefficients[j] = c
	}
	return f, nil
}

// eval computes f(u) mod q by Horner's rule.
func (f *polynomial) eval(params *group.Parameters, u int64) *big.Int {
	x := big.NewInt(u)
	r := new(big.Int)
	for j := len(f.coefficients) - 1; j >= 0; j-- {
		r.Mul(r, x)
		r.Add(r, f.coefficients[j])
		r.Mod(r, params.Q)
	}
	return r
}

// Deal splits the private exponent of priv among n trustees with
// threshold k. Trustee i receives f(i); the coefficient commitments
// g^{a_j} are returned for publication. Fails with
// InvalidThresholdError when k > n or k < 1.
func Deal(priv *elgamal.PrivateKey, n, k int) ([]Share, Commitments, error) {
	if k < 1 || k > n {
		return nil, nil, &InvalidThresholdError{N: n, K: k}
	}
	params := priv.Params

	f, err := newSecretPolynomial(params, priv.X, k)
	if err != nil {
		return nil, nil, err
	}

	shares := make([]Share, n)
	for i := 1; i <= n; i++ {
		shares[i-1] = Share{Index: i, Value: f.eval(params, int64(i))}
	}

	commitments := make(Commitments, k)
	for j, coeff := range f.coefficients {
		commitments[j] = params.Exp(params.G, coeff)
	}

	return shares, commitments, nil
}

// PublicShare derives g^{f(i)} for trustee i from the published
// commitments: the product of C_j^{i^j mod q}.
func (commitments Commitments) PublicShare(params *group.Parameters, index int) *big.Int {
	i := big.NewInt(int64(index))
	ipow := new(big.Int).Set(bigOne)
	acc := new(big.Int).Set(bigOne)
	for _, c := range commitments {
		acc = params.Mul(acc, params.Exp(c, ipow))
		ipow.Mul(ipow, i)
		ipow.Mod(ipow, params.Q)
	}
	return acc
}

// VerifyShare lets a trustee check its own share against the published
// commitments: g^{x_i} must equal the commitment product for its index.
// It returns a plain boolean and never an error; an unverifiable share
// is simply not accepted.
func VerifyShare(params *group.Parameters, share Share, commitments Commitments) bool {
	if share.Index < 1 || share.Value == nil || len(commitments) == 0 {
		return false
	}
	if share.Value.Sign() < 0 || share.Value.Cmp(params.Q) >= 0 {
		return false
	}
	expected := commitments.PublicShare(params, share.Index)
	return params.Exp(params.G, share.Value).Cmp(expected) == 0
}
