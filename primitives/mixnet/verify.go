package mixnet

import (
	"sort"

	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
)

// OpenedCandidate is one disclosed candidate: its index among the 2t
// commitments and the mapping the mixer claims produced it.
type OpenedCandidate struct {
	Index   int
	Mapping *Mapping
}

// Transcript is the full audit record of one shuffle run: the input
// batch, the 2t candidate commitments, the challenge, the opened
// mappings, the links tying each unopened candidate to the output, and
// the final output batch. It carries no secret state and may be
// archived after verification.
type Transcript struct {
	// FiatShamir records whether the challenge was derived from the
	// commitment hash (true) or chosen by an interactive verifier.
	FiatShamir bool

	Input       *Batch
	Commitments []*Batch
	Challenge   []int
	Opened      []OpenedCandidate

	// Links holds, for each unopened candidate that went into the
	// output composition, the mapping from that committed batch to the
	// output batch. Together with Opened they pin the output to the
	// committed candidates: every candidate is either opened against
	// the input or linked to the output, never both.
	Links []OpenedCandidate

	Output *Batch
}

// VerifyTranscript checks a self-contained Fiat-Shamir shuffle
// transcript against the public key it claims to shuffle under. It
// recomputes the challenge from the commitment hash, re-executes every
// opened candidate's mapping against the input, and re-executes every
// unopened candidate's link against the output, comparing ciphertext by
// ciphertext. Any discrepancy fails closed with ShuffleRejected; the
// whole run must then be discarded, because a mixer caught cheating on
// any candidate discredits the rest.
//
// Interactive transcripts are refused: the transcript cannot prove
// which challenge the verifier actually issued, so an auditor who ran
// the challenge phase must call VerifyTranscriptWithChallenge instead.
func VerifyTranscript(pub *elgamal.PublicKey, tr *Transcript) error {
	if tr == nil {
		return &ShuffleRejected{Candidate: -1, Reason: "missing transcript"}
	}
	if !tr.FiatShamir {
		return &ShuffleRejected{Candidate: -1, Reason: "interactive transcript requires the verifier's challenge"}
	}
	return verifyTranscript(pub, tr, nil)
}

// VerifyTranscriptWithChallenge checks an interactive shuffle
// transcript against the challenge the verifier itself issued. The
// issued indices may be in any order; they must select exactly the
// candidates the transcript opens.
func VerifyTranscriptWithChallenge(pub *elgamal.PublicKey, tr *Transcript, challenge []int) error {
	if tr == nil {
		return &ShuffleRejected{Candidate: -1, Reason: "missing transcript"}
	}
	if len(challenge) == 0 {
		return &ShuffleRejected{Candidate: -1, Reason: "missing issued challenge"}
	}
	issued := append([]int(nil), challenge...)
	sort.Ints(issued)
	return verifyTranscript(pub, tr, issued)
}

// verifyTranscript is the shared core. A nil issued challenge means
// the transcript is Fiat-Shamir and the challenge is recomputed from
// the commitment hash; otherwise the transcript's challenge must equal
// the issued one.
func verifyTranscript(pub *elgamal.PublicKey, tr *Transcript, issued []int) error {
	t := len(tr.Challenge)
	if t < 1 {
		return &ShuffleRejected{Candidate: -1, Reason: "empty challenge"}
	}
	if len(tr.Commitments) != 2*t {
		return &ShuffleRejected{Candidate: -1, Reason: "commitment count does not match challenge size"}
	}
	if err := checkChallenge(tr.Challenge, t); err != nil {
		return &ShuffleRejected{Candidate: -1, Reason: err.Error()}
	}
	if len(tr.Opened) != t {
		return &ShuffleRejected{Candidate: -1, Reason: "opened candidate count does not match challenge"}
	}

	params := pub.Params
	fp := pub.Fingerprint()
	if err := tr.Input.validate(params, fp); err != nil {
		return &ShuffleRejected{Candidate: -1, Reason: "input batch: " + err.Error()}
	}
	if err := tr.Output.validate(params, fp); err != nil {
		return &ShuffleRejected{Candidate: -1, Reason: "output batch: " + err.Error()}
	}
	if tr.Output.Size() != tr.Input.Size() {
		return &ShuffleRejected{Candidate: -1, Reason: "output batch size differs from input"}
	}
	for i, b := range tr.Commitments {
		if err := b.validate(params, fp); err != nil {
			return &ShuffleRejected{Candidate: i, Reason: "committed batch: " + err.Error()}
		}
		if b.Size() != tr.Input.Size() {
			return &ShuffleRejected{Candidate: i, Reason: "committed batch size differs from input"}
		}
	}

	if issued == nil {
		expected := selectIndices(challengeSeed(fp, tr.Input, tr.Commitments), 2*t, t)
		for i := range expected {
			if expected[i] != tr.Challenge[i] {
				return &ShuffleRejected{Candidate: -1, Reason: "challenge does not match commitment hash"}
			}
		}
	} else {
		if len(issued) != t {
			return &ShuffleRejected{Candidate: -1, Reason: "issued challenge size does not match transcript"}
		}
		for i := range issued {
			if issued[i] != tr.Challenge[i] {
				return &ShuffleRejected{Candidate: -1, Reason: "transcript challenge does not match issued challenge"}
			}
		}
	}

	openedFor := make(map[int]*Mapping, t)
	for _, oc := range tr.Opened {
		if oc.Mapping == nil {
			return &ShuffleRejected{Candidate: oc.Index, Reason: "missing opened mapping"}
		}
		openedFor[oc.Index] = oc.Mapping
	}
	for _, idx := range tr.Challenge {
		m, ok := openedFor[idx]
		if !ok {
			return &ShuffleRejected{Candidate: idx, Reason: "challenged candidate was not opened"}
		}
		if !m.Matches(params, tr.Input, tr.Commitments[idx]) {
			return &ShuffleRejected{Candidate: idx, Reason: "opened mapping does not reproduce committed batch"}
		}
	}

	// The unopened candidates that composed the output must each carry
	// a link reproducing the output batch from their commitment. This
	// is what binds tr.Output to the committed candidates at all; a
	// transcript without valid links proves nothing about its output.
	used := composedIndices(tr.Challenge, len(tr.Commitments))
	if len(tr.Links) != len(used) {
		return &ShuffleRejected{Candidate: -1, Reason: "link count does not match unopened candidates"}
	}
	linkFor := make(map[int]*Mapping, len(tr.Links))
	for _, lk := range tr.Links {
		if lk.Mapping == nil {
			return &ShuffleRejected{Candidate: lk.Index, Reason: "missing output link"}
		}
		linkFor[lk.Index] = lk.Mapping
	}
	for _, idx := range used {
		lm, ok := linkFor[idx]
		if !ok {
			return &ShuffleRejected{Candidate: idx, Reason: "unopened candidate has no output link"}
		}
		if !lm.Matches(params, tr.Commitments[idx], tr.Output) {
			return &ShuffleRejected{Candidate: idx, Reason: "output link does not reproduce output batch"}
		}
	}

	return nil
}
