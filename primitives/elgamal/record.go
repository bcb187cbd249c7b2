package elgamal

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/openaudit/go-electioncrypt/msgpack"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

// PublicKeyRecord is the persistence form of a public key.
type PublicKeyRecord struct {
	Params group.Record `codec:"params"`
	Y      []byte       `codec:"y"`
}

// BlockRecord is one serialized ciphertext pair.
type BlockRecord struct {
	A []byte `codec:"a"`
	B []byte `codec:"b"`
}

// CiphertextRecord is the persistence form of a ciphertext.
type CiphertextRecord struct {
	PublicKeyFingerprint []byte        `codec:"pk"`
	Blocks               []BlockRecord `codec:"blocks"`
}

// PrivateKeyRecord is the trustee-local persistence form of a private
// key. It deliberately shares no type with PublicKeyRecord so the two
// are never serialized together inside one trust boundary.
type PrivateKeyRecord struct {
	Params group.Record `codec:"params"`
	X      []byte       `codec:"x"`
}

// Record returns the serializable form of the public key.
func (pub *PublicKey) Record() PublicKeyRecord {
	return PublicKeyRecord{Params: pub.Params.Record(), Y: pub.Y.Bytes()}
}

// MarshalBinary serializes the public key as canonical msgpack.
func (pub *PublicKey) MarshalBinary() ([]byte, error) {
	return msgpack.Encode(pub.Record()), nil
}

// Fingerprint returns the sha256 hash of the canonical public key
// record. Ciphertexts and batches carry it to tie themselves to their
// encryption key.
func (pub *PublicKey) Fingerprint() []byte {
	h := sha256.New()
	h.Write([]byte("public key")) // domain separation
	h.Write(msgpack.Encode(pub.Record()))
	return h.Sum(nil)
}

// ParsePublicKey deserializes and validates a public key record.
func ParsePublicKey(data []byte, cfg group.Config) (*PublicKey, error) {
	var rec PublicKeyRecord
	if err := msgpack.Decode(data, &rec); err != nil {
		return nil, &InvalidKeyError{Reason: fmt.Sprintf("malformed record: %v", err)}
	}
	params, err := group.FromRecord(rec.Params, cfg)
	if err != nil {
		return nil, err
	}
	if len(rec.Y) == 0 {
		return nil, &InvalidKeyError{Reason: "record is missing the public value"}
	}
	return NewPublicKey(params, new(big.Int).SetBytes(rec.Y))
}

// Record returns the serializable form of the ciphertext.
func (ct *Ciphertext) Record() CiphertextRecord {
	rec := CiphertextRecord{
		PublicKeyFingerprint: ct.PublicKeyFingerprint,
		Blocks:               make([]BlockRecord, len(ct.Blocks)),
	}
	for i, blk := range ct.Blocks {
		rec.Blocks[i] = BlockRecord{A: blk.A.Bytes(), B: blk.B.Bytes()}
	}
	return rec
}

// MarshalBinary serializes the ciphertext as canonical msgpack.
func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	return msgpack.Encode(ct.Record()), nil
}

// CiphertextFromRecord rebuilds and validates a ciphertext against the
// given group. Structural defects and subgroup failures both surface as
// InvalidCiphertextError.
func CiphertextFromRecord(params *group.Parameters, rec CiphertextRecord) (*Ciphertext, error) {
	ct := &Ciphertext{
		PublicKeyFingerprint: rec.PublicKeyFingerprint,
		Blocks:               make([]CiphertextBlock, len(rec.Blocks)),
	}
	for i, blk := range rec.Blocks {
		if len(blk.A) == 0 || len(blk.B) == 0 {
			return nil, &InvalidCiphertextError{Block: i, Reason: "record block missing a component"}
		}
		ct.Blocks[i] = CiphertextBlock{
			A: new(big.Int).SetBytes(blk.A),
			B: new(big.Int).SetBytes(blk.B),
		}
	}
	if err := ct.Validate(params); err != nil {
		return nil, err
	}
	return ct, nil
}

// ParseCiphertext deserializes and validates a ciphertext record.
func ParseCiphertext(params *group.Parameters, data []byte) (*Ciphertext, error) {
	var rec CiphertextRecord
	if err := msgpack.Decode(data, &rec); err != nil {
		return nil, &InvalidCiphertextError{Block: -1, Reason: fmt.Sprintf("malformed record: %v", err)}
	}
	return CiphertextFromRecord(params, rec)
}

// Record returns the owner-local serializable form of the private key.
func (priv *PrivateKey) Record() PrivateKeyRecord {
	return PrivateKeyRecord{Params: priv.Params.Record(), X: priv.X.Bytes()}
}

// MarshalBinary serializes the private key for owner-local storage.
func (priv *PrivateKey) MarshalBinary() ([]byte, error) {
	return msgpack.Encode(priv.Record()), nil
}

// ParsePrivateKey deserializes and validates a private key record.
func ParsePrivateKey(data []byte, cfg group.Config) (*PrivateKey, error) {
	var rec PrivateKeyRecord
	if err := msgpack.Decode(data, &rec); err != nil {
		return nil, &InvalidKeyError{Reason: fmt.Sprintf("malformed record: %v", err)}
	}
	params, err := group.FromRecord(rec.Params, cfg)
	if err != nil {
		return nil, err
	}
	if len(rec.X) == 0 {
		return nil, &InvalidKeyError{Reason: "record is missing the private exponent"}
	}
	return NewPrivateKey(params, new(big.Int).SetBytes(rec.X))
}
