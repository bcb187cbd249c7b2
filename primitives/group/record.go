package group

import (
	"crypto/sha256"
	"fmt"

	"math/big"

	"github.com/openaudit/go-electioncrypt/msgpack"
)

// Record is the opaque structured form of Parameters used by the
// persistence boundary. Field values are big-endian byte strings.
// Encoding is canonical msgpack, so a parse/serialize round trip is
// byte-identical.
type Record struct {
	P []byte `codec:"p"`
	Q []byte `codec:"q"`
	G []byte `codec:"g"`
}

// Record returns the serializable form of the parameters.
func (params *Parameters) Record() Record {
	return Record{
		P: params.P.Bytes(),
		Q: params.Q.Bytes(),
		G: params.G.Bytes(),
	}
}

// MarshalBinary serializes the parameters as canonical msgpack.
func (params *Parameters) MarshalBinary() ([]byte, error) {
	return msgpack.Encode(params.Record()), nil
}

// Parse deserializes and validates domain parameters. Structurally
// invalid input and parameters failing validation both produce an
// InvalidDomainError.
func Parse(data []byte, cfg Config) (*Parameters, error) {
	var rec Record
	if err := msgpack.Decode(data, &rec); err != nil {
		return nil, &InvalidDomainError{Reason: fmt.Sprintf("malformed record: %v", err)}
	}
	return FromRecord(rec, cfg)
}

// FromRecord validates a Record and returns the parameters it names.
func FromRecord(rec Record, cfg Config) (*Parameters, error) {
	if len(rec.P) == 0 || len(rec.Q) == 0 || len(rec.G) == 0 {
		return nil, &InvalidDomainError{Reason: "record is missing a field"}
	}
	return New(
		new(big.Int).SetBytes(rec.P),
		new(big.Int).SetBytes(rec.Q),
		new(big.Int).SetBytes(rec.G),
		cfg,
	)
}

// Fingerprint returns the sha256 hash of the canonical record, used to
// tie keys, ciphertexts and batches to the group they were built over.
func (params *Parameters) Fingerprint() []byte {
	h := sha256.New()
	h.Write([]byte("domain parameters")) // domain separation
	h.Write(msgpack.Encode(params.Record()))
	return h.Sum(nil)
}
