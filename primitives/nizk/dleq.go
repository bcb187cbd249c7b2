// Package nizk implements the non-interactive zero-knowledge proof of
// equality of discrete logarithms (Chaum-Pedersen) used by verifiable
// partial decryption.
//
// Concretely the statement is (G1, H1, G2, H2) and the prover shows
// knowledge of x such that H1 = G1^x and H2 = G2^x, without revealing
// x. The proof works as follows: generate a random scalar w, commit to
// (T1, T2) = (G1^w, G2^w), hash the statement and commitments into a
// challenge c (Fiat-Shamir, so no verifier interaction is needed), and
// respond with s = w + c*x mod q. The verifier recomputes c and checks
// G1^s = T1*H1^c and G2^s = T2*H2^c.
package nizk

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/openaudit/go-electioncrypt/msgpack"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

// DLEQStatement describes a claimed equality of discrete logs,
// see comment top of file.
type DLEQStatement struct {
	G1 *big.Int
	H1 *big.Int
	G2 *big.Int
	H2 *big.Int
}

// DLEQProof is the (commitment, challenge, response) triple. The
// challenge is carried explicitly and re-derived during verification.
type DLEQProof struct {
	T1        *big.Int
	T2        *big.Int
	Challenge *big.Int
	Response  *big.Int
}

// dleqChallengeIn is the transcript hashed to derive the challenge.
type dleqChallengeIn struct {
	Domain []byte `codec:"d"`
	G1     []byte `codec:"g1"`
	H1     []byte `codec:"h1"`
	G2     []byte `codec:"g2"`
	H2     []byte `codec:"h2"`
	T1     []byte `codec:"t1"`
	T2     []byte `codec:"t2"`
}

func dleqBasicCheckStatement(params *group.Parameters, stmt DLEQStatement) error {
	for _, v := range []*big.Int{stmt.G1, stmt.H1, stmt.G2, stmt.H2} {
		if !params.IsElement(v) {
			return fmt.Errorf("statement value is not a subgroup element")
		}
	}
	return nil
}

// dleqChallenge hashes the transcript with a domain-separation prefix
// and reduces the digest modulo q.
func dleqChallenge(params *group.Parameters, stmt DLEQStatement, t1, t2 *big.Int) *big.Int {
	in := dleqChallengeIn{
		Domain: params.Fingerprint(),
		G1:     stmt.G1.Bytes(),
		H1:     stmt.H1.Bytes(),
		G2:     stmt.G2.Bytes(),
		H2:     stmt.H2.Bytes(),
		T1:     t1.Bytes(),
		T2:     t2.Bytes(),
	}

	h := sha256.New()
	h.Write([]byte("dleq")) // prefix for domain separation
	h.Write(msgpack.Encode(in))
	c := new(big.Int).SetBytes(h.Sum(nil))
	return c.Mod(c, params.Q)
}

// DLEQProve generates a proof for stmt using witness x. It does not
// verify that the witness actually satisfies the statement.
func DLEQProve(params *group.Parameters, stmt DLEQStatement, x *big.Int) (*DLEQProof, error) {
	if err := dleqBasicCheckStatement(params, stmt); err != nil {
		return nil, err
	}
	if x == nil || x.Sign() <= 0 || x.Cmp(params.Q) >= 0 {
		return nil, fmt.Errorf("witness outside [1, q-1]")
	}

	w, err := params.RandomExponent()
	if err != nil {
		return nil, err
	}

	t1 := params.Exp(stmt.G1, w)
	t2 := params.Exp(stmt.G2, w)
	c := dleqChallenge(params, stmt, t1, t2)

	// s = w + c*x mod q
	s := new(big.Int).Mul(c, x)
	s.Add(s, w)
	s.Mod(s, params.Q)

	return &DLEQProof{T1: t1, T2: t2, Challenge: c, Response: s}, nil
}

// DLEQVerify checks the proof against the statement. A nil result
// means the proof is valid; any defect, including a challenge that does
// not match the transcript, is an error.
func DLEQVerify(params *group.Parameters, stmt DLEQStatement, proof *DLEQProof) error {
	if proof == nil || proof.T1 == nil || proof.T2 == nil ||
		proof.Challenge == nil || proof.Response == nil {
		return fmt.Errorf("incomplete proof")
	}
	if err := dleqBasicCheckStatement(params, stmt); err != nil {
		return err
	}
	if !params.IsElement(proof.T1) || !params.IsElement(proof.T2) {
		return fmt.Errorf("proof commitment is not a subgroup element")
	}
	if proof.Response.Sign() < 0 || proof.Response.Cmp(params.Q) >= 0 {
		return fmt.Errorf("proof response out of range")
	}

	c := dleqChallenge(params, stmt, proof.T1, proof.T2)
	if c.Cmp(proof.Challenge) != 0 {
		return fmt.Errorf("challenge does not match transcript")
	}

	// G1^s == T1 * H1^c
	left := params.Exp(stmt.G1, proof.Response)
	right := params.Mul(proof.T1, params.Exp(stmt.H1, c))
	if left.Cmp(right) != 0 {
		return fmt.Errorf("first verification equation failed")
	}

	// G2^s == T2 * H2^c
	left = params.Exp(stmt.G2, proof.Response)
	right = params.Mul(proof.T2, params.Exp(stmt.H2, c))
	if left.Cmp(right) != 0 {
		return fmt.Errorf("second verification equation failed")
	}

	return nil
}
