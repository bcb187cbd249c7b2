// Package mixnet implements the re-encryption mixnet: shuffling a
// batch of ElGamal ciphertexts under a fresh permutation and
// re-randomization, together with a cut-and-choose zero-knowledge proof
// that the output batch is a permutation of re-encryptions of the input
// batch. Any observer can verify the proof transcript without learning
// the permutation.
package mixnet

import (
	"bytes"
	"fmt"

	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

// ShuffleRejected reports a shuffle run whose transcript failed
// verification. A single failed candidate discredits the whole run:
// the unopened candidates that feed the output can no longer be
// trusted, so the run must be discarded.
type ShuffleRejected struct {
	Candidate int // index of the failed candidate, -1 when structural
	Reason    string
}

func (e *ShuffleRejected) Error() string {
	if e.Candidate >= 0 {
		return fmt.Sprintf("shuffle rejected: candidate %d: %s", e.Candidate, e.Reason)
	}
	return fmt.Sprintf("shuffle rejected: %s", e.Reason)
}

// Batch is an ordered collection of ciphertexts encrypted under one
// public key. Batches are immutable after construction and fully
// validated: every component of every ciphertext is a subgroup element.
type Batch struct {
	PublicKeyFingerprint []byte
	Ciphertexts          []*elgamal.Ciphertext
}

// NewBatch validates the ciphertexts against the public key and bundles
// them. Ciphertexts encrypted under a different key, and malformed
// ciphertexts, are rejected.
func NewBatch(pub *elgamal.PublicKey, cts []*elgamal.Ciphertext) (*Batch, error) {
	if len(cts) == 0 {
		return nil, fmt.Errorf("batch must contain at least one ciphertext")
	}
	fp := pub.Fingerprint()
	for i, ct := range cts {
		if err := ct.Validate(pub.Params); err != nil {
			return nil, fmt.Errorf("ciphertext %d: %w", i, err)
		}
		if !bytes.Equal(ct.PublicKeyFingerprint, fp) {
			return nil, fmt.Errorf("ciphertext %d was encrypted under a different key", i)
		}
	}
	return &Batch{PublicKeyFingerprint: fp, Ciphertexts: cts}, nil
}

// Size returns the number of ciphertexts in the batch.
func (b *Batch) Size() int {
	return len(b.Ciphertexts)
}

// Equal reports ciphertext-by-ciphertext equality.
func (b *Batch) Equal(other *Batch) bool {
	if other == nil || len(b.Ciphertexts) != len(other.Ciphertexts) {
		return false
	}
	if !bytes.Equal(b.PublicKeyFingerprint, other.PublicKeyFingerprint) {
		return false
	}
	for i := range b.Ciphertexts {
		if !b.Ciphertexts[i].Equal(other.Ciphertexts[i]) {
			return false
		}
	}
	return true
}

func (b *Batch) validate(params *group.Parameters, pubFP []byte) error {
	if b == nil || len(b.Ciphertexts) == 0 {
		return fmt.Errorf("empty batch")
	}
	if !bytes.Equal(b.PublicKeyFingerprint, pubFP) {
		return fmt.Errorf("batch is tied to a different public key")
	}
	for i, ct := range b.Ciphertexts {
		if err := ct.Validate(params); err != nil {
			return fmt.Errorf("ciphertext %d: %w", i, err)
		}
		if !bytes.Equal(ct.PublicKeyFingerprint, pubFP) {
			return fmt.Errorf("ciphertext %d was encrypted under a different key", i)
		}
	}
	return nil
}
