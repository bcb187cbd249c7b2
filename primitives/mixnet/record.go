package mixnet

import (
	"fmt"
	"math/big"

	"github.com/openaudit/go-electioncrypt/msgpack"
	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

// batchRecord is the persistence form of a Batch.
type batchRecord struct {
	PublicKeyFingerprint []byte                      `codec:"pk"`
	Ciphertexts          []elgamal.CiphertextRecord `codec:"cts"`
}

// factorRecord is one serialized re-encryption pair.
type factorRecord struct {
	GR []byte `codec:"gr"`
	YR []byte `codec:"yr"`
}

// mappingRecord is the persistence form of an opened Mapping.
type mappingRecord struct {
	Perm    []int            `codec:"perm"`
	Factors [][]factorRecord `codec:"factors"`
}

// openedRecord pairs a candidate index with its disclosed mapping.
type openedRecord struct {
	Index   int           `codec:"i"`
	Mapping mappingRecord `codec:"m"`
}

// TranscriptRecord is the opaque structured form of a shuffle
// transcript for the persistence boundary. Encoding is canonical
// msgpack, so parse/serialize round trips are byte-identical.
type TranscriptRecord struct {
	FiatShamir  bool           `codec:"fs"`
	Input       batchRecord    `codec:"in"`
	Commitments []batchRecord  `codec:"com"`
	Challenge   []int          `codec:"ch"`
	Opened      []openedRecord `codec:"open"`
	Links       []openedRecord `codec:"links"`
	Output      batchRecord    `codec:"out"`
}

func (b *Batch) record() batchRecord {
	rec := batchRecord{
		PublicKeyFingerprint: b.PublicKeyFingerprint,
		Ciphertexts:          make([]elgamal.CiphertextRecord, len(b.Ciphertexts)),
	}
	for i, ct := range b.Ciphertexts {
		rec.Ciphertexts[i] = ct.Record()
	}
	return rec
}

func batchFromRecord(params *group.Parameters, rec batchRecord) (*Batch, error) {
	if len(rec.Ciphertexts) == 0 {
		return nil, fmt.Errorf("batch record has no ciphertexts")
	}
	cts := make([]*elgamal.Ciphertext, len(rec.Ciphertexts))
	for i, ctRec := range rec.Ciphertexts {
		ct, err := elgamal.CiphertextFromRecord(params, ctRec)
		if err != nil {
			return nil, fmt.Errorf("ciphertext %d: %w", i, err)
		}
		cts[i] = ct
	}
	return &Batch{PublicKeyFingerprint: rec.PublicKeyFingerprint, Ciphertexts: cts}, nil
}

func (m *Mapping) record() mappingRecord {
	rec := mappingRecord{
		Perm:    append([]int(nil), m.perm...),
		Factors: make([][]factorRecord, len(m.factors)),
	}
	for i, blocks := range m.factors {
		rec.Factors[i] = make([]factorRecord, len(blocks))
		for blk, f := range blocks {
			rec.Factors[i][blk] = factorRecord{GR: f.GR.Bytes(), YR: f.YR.Bytes()}
		}
	}
	return rec
}

func mappingFromRecord(params *group.Parameters, rec mappingRecord) (*Mapping, error) {
	n := len(rec.Perm)
	if n == 0 || len(rec.Factors) != n {
		return nil, fmt.Errorf("mapping record is structurally inconsistent")
	}
	seen := make([]bool, n)
	for _, dst := range rec.Perm {
		if dst < 0 || dst >= n || seen[dst] {
			return nil, fmt.Errorf("mapping record does not describe a permutation")
		}
		seen[dst] = true
	}

	factors := make([][]reencFactor, n)
	for i, blocks := range rec.Factors {
		factors[i] = make([]reencFactor, len(blocks))
		for blk, f := range blocks {
			if len(f.GR) == 0 || len(f.YR) == 0 {
				return nil, fmt.Errorf("mapping record factor %d/%d missing a component", i, blk)
			}
			gr := new(big.Int).SetBytes(f.GR)
			yr := new(big.Int).SetBytes(f.YR)
			if !params.IsElement(gr) || !params.IsElement(yr) {
				return nil, fmt.Errorf("mapping record factor %d/%d is not a subgroup element", i, blk)
			}
			factors[i][blk] = reencFactor{GR: gr, YR: yr}
		}
	}
	return &Mapping{perm: append([]int(nil), rec.Perm...), factors: factors}, nil
}

// Record returns the serializable form of the transcript.
func (tr *Transcript) Record() TranscriptRecord {
	rec := TranscriptRecord{
		FiatShamir: tr.FiatShamir,
		Input:      tr.Input.record(),
		Challenge:  append([]int(nil), tr.Challenge...),
		Output:     tr.Output.record(),
	}
	for _, b := range tr.Commitments {
		rec.Commitments = append(rec.Commitments, b.record())
	}
	for _, oc := range tr.Opened {
		rec.Opened = append(rec.Opened, openedRecord{Index: oc.Index, Mapping: oc.Mapping.record()})
	}
	for _, lk := range tr.Links {
		rec.Links = append(rec.Links, openedRecord{Index: lk.Index, Mapping: lk.Mapping.record()})
	}
	return rec
}

// MarshalBinary serializes the transcript as canonical msgpack.
func (tr *Transcript) MarshalBinary() ([]byte, error) {
	return msgpack.Encode(tr.Record()), nil
}

// ParseTranscript deserializes a transcript and rebuilds its batches
// and mappings against the given group, validating subgroup membership
// throughout. Structural defects produce ShuffleRejected rather than a
// generic fault; full protocol verification still requires
// VerifyTranscript.
func ParseTranscript(params *group.Parameters, data []byte) (*Transcript, error) {
	var rec TranscriptRecord
	if err := msgpack.Decode(data, &rec); err != nil {
		return nil, &ShuffleRejected{Candidate: -1, Reason: fmt.Sprintf("malformed record: %v", err)}
	}

	input, err := batchFromRecord(params, rec.Input)
	if err != nil {
		return nil, &ShuffleRejected{Candidate: -1, Reason: "input batch: " + err.Error()}
	}
	output, err := batchFromRecord(params, rec.Output)
	if err != nil {
		return nil, &ShuffleRejected{Candidate: -1, Reason: "output batch: " + err.Error()}
	}

	tr := &Transcript{
		FiatShamir: rec.FiatShamir,
		Input:      input,
		Challenge:  rec.Challenge,
		Output:     output,
	}
	for i, bRec := range rec.Commitments {
		b, err := batchFromRecord(params, bRec)
		if err != nil {
			return nil, &ShuffleRejected{Candidate: i, Reason: "committed batch: " + err.Error()}
		}
		tr.Commitments = append(tr.Commitments, b)
	}
	for _, oRec := range rec.Opened {
		m, err := mappingFromRecord(params, oRec.Mapping)
		if err != nil {
			return nil, &ShuffleRejected{Candidate: oRec.Index, Reason: "opened mapping: " + err.Error()}
		}
		tr.Opened = append(tr.Opened, OpenedCandidate{Index: oRec.Index, Mapping: m})
	}
	for _, lRec := range rec.Links {
		m, err := mappingFromRecord(params, lRec.Mapping)
		if err != nil {
			return nil, &ShuffleRejected{Candidate: lRec.Index, Reason: "output link: " + err.Error()}
		}
		tr.Links = append(tr.Links, OpenedCandidate{Index: lRec.Index, Mapping: m})
	}
	return tr, nil
}
