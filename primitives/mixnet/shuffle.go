package mixnet

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/sync/errgroup"

	"github.com/openaudit/go-electioncrypt/msgpack"
	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
	"github.com/openaudit/go-electioncrypt/progress"
)

// DefaultSoundness is a soundness parameter giving a cheating-detection
// probability of at least 1 - 2^-39, adequate for audit-grade shuffles.
const DefaultSoundness = 40

// State names the stages of one shuffle operation.
type State int

const (
	StatePrepared State = iota
	StateCommitted
	StateChallenged
	StateRevealed
	StateVerified
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePrepared:
		return "PREPARED"
	case StateCommitted:
		return "COMMITTED"
	case StateChallenged:
		return "CHALLENGED"
	case StateRevealed:
		return "REVEALED"
	case StateVerified:
		return "VERIFIED"
	case StateRejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Shuffle drives one cut-and-choose shuffle of an input batch:
//
//	PREPARED -> COMMITTED -> CHALLENGED -> REVEALED -> VERIFIED|REJECTED
//
// The mixer generates 2t independent candidate shuffles and commits to
// their output batches; a challenge opens t of them; the opened
// candidates' mappings are disclosed for checking, and the unopened
// candidates are composed into the final output batch. A mixer cheating
// on more than one candidate escapes detection with probability at most
// 2^{-t+1}.
type Shuffle struct {
	pub   *elgamal.PublicKey
	input *Batch
	t     int
	state State

	mappings    []*Mapping // one per candidate, never disclosed unless opened
	commitments []*Batch   // candidate output batches, published
	challenge   []int      // opened candidate indices
	fiatShamir  bool
	transcript  *Transcript
}

// NewShuffle prepares a shuffle of the input batch with soundness
// parameter t. Callers needing cryptographic certainty should use
// t >= DefaultSoundness.
func NewShuffle(pub *elgamal.PublicKey, input *Batch, t int) (*Shuffle, error) {
	if t < 1 {
		return nil, fmt.Errorf("soundness parameter must be at least 1, got %d", t)
	}
	if err := input.validate(pub.Params, pub.Fingerprint()); err != nil {
		return nil, err
	}
	return &Shuffle{pub: pub, input: input, t: t, state: StatePrepared}, nil
}

// State returns the current protocol state.
func (s *Shuffle) State() State {
	return s.state
}

// Commit generates the 2t candidate shuffles and returns their output
// batches, which are the public commitment. The permutations and
// re-encryption factors stay private. Candidates are independent and
// are generated in parallel.
func (s *Shuffle) Commit(rep progress.Reporter) ([]*Batch, error) {
	if s.state != StatePrepared {
		return nil, fmt.Errorf("commit called in state %s, want %s", s.state, StatePrepared)
	}

	n := 2 * s.t
	s.mappings = make([]*Mapping, n)
	s.commitments = make([]*Batch, n)

	var g errgroup.Group
	var completed int32
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			m, err := NewMapping(s.pub, s.input)
			if err != nil {
				return err
			}
			b, err := m.Apply(s.pub.Params, s.input)
			if err != nil {
				return err
			}
			s.mappings[i] = m
			s.commitments[i] = b
			progress.Report(rep, int(atomic.AddInt32(&completed, 1)), n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"batch":      s.input.Size(),
		"candidates": n,
	}).Debug("committed shuffle candidates")

	s.state = StateCommitted
	return s.commitments, nil
}

// Challenge derives the t opened candidate indices non-interactively by
// hashing the commitments (Fiat-Shamir), removing the need for an
// external verifier at challenge time.
func (s *Shuffle) Challenge() ([]int, error) {
	if s.state != StateCommitted {
		return nil, fmt.Errorf("challenge called in state %s, want %s", s.state, StateCommitted)
	}
	seed := challengeSeed(s.pub.Fingerprint(), s.input, s.commitments)
	s.challenge = selectIndices(seed, 2*s.t, s.t)
	s.fiatShamir = true
	s.state = StateChallenged
	return s.challenge, nil
}

// ChallengeWith accepts a challenge chosen by an interactive verifier:
// exactly t distinct indices into the 2t candidates.
func (s *Shuffle) ChallengeWith(indices []int) error {
	if s.state != StateCommitted {
		return fmt.Errorf("challenge called in state %s, want %s", s.state, StateCommitted)
	}
	if err := checkChallenge(indices, s.t); err != nil {
		return err
	}
	s.challenge = append([]int(nil), indices...)
	sort.Ints(s.challenge)
	s.fiatShamir = false
	s.state = StateChallenged
	return nil
}

// Reveal discloses the mappings of the opened candidates, composes the
// unopened candidates into the final output batch, and discloses for
// each composed candidate the link carrying its committed batch to the
// output. The links anchor the output to the pre-challenge commitments
// without revealing any input-to-output association: a candidate is
// either opened (input side shown) or linked (output side shown), never
// both. The returned transcript carries everything a third party needs
// for audit.
//
// When t is odd the surplus unopened candidate (the highest index) is
// left out of the composition and receives no link; with t = 1 the
// single unopened candidate is used directly.
func (s *Shuffle) Reveal() (*Transcript, error) {
	if s.state != StateChallenged {
		return nil, fmt.Errorf("reveal called in state %s, want %s", s.state, StateChallenged)
	}

	used := composedIndices(s.challenge, len(s.mappings))

	composed := s.mappings[used[0]]
	for _, idx := range used[1:] {
		var err error
		composed, err = composed.Compose(s.pub.Params, s.mappings[idx])
		if err != nil {
			return nil, err
		}
	}
	output, err := composed.Apply(s.pub.Params, s.input)
	if err != nil {
		return nil, err
	}

	opened := make([]OpenedCandidate, 0, len(s.challenge))
	for _, idx := range s.challenge {
		opened = append(opened, OpenedCandidate{Index: idx, Mapping: s.mappings[idx]})
	}

	links := make([]OpenedCandidate, 0, len(used))
	for _, idx := range used {
		link, err := s.mappings[idx].linkTo(s.pub.Params, composed)
		if err != nil {
			return nil, err
		}
		links = append(links, OpenedCandidate{Index: idx, Mapping: link})
	}

	s.transcript = &Transcript{
		FiatShamir:  s.fiatShamir,
		Input:       s.input,
		Commitments: s.commitments,
		Challenge:   s.challenge,
		Opened:      opened,
		Links:       links,
		Output:      output,
	}
	s.state = StateRevealed
	return s.transcript, nil
}

// composedIndices returns the unopened candidate indices feeding the
// output composition: every index outside the challenge, ascending.
// Both the mixer and the verifier derive this set from the challenge
// alone.
func composedIndices(challenge []int, total int) []int {
	opened := make(map[int]bool, len(challenge))
	for _, idx := range challenge {
		opened[idx] = true
	}
	var unopened []int
	for i := 0; i < total; i++ {
		if !opened[i] {
			unopened = append(unopened, i)
		}
	}
	return unopened
}

// Verify runs transcript verification on the mixer's own run, moving
// the machine to VERIFIED or REJECTED. Interactive runs are checked
// against the challenge the machine accepted. Third parties use
// VerifyTranscript (or VerifyTranscriptWithChallenge) directly.
func (s *Shuffle) Verify() error {
	if s.state != StateRevealed {
		return fmt.Errorf("verify called in state %s, want %s", s.state, StateRevealed)
	}
	var err error
	if s.fiatShamir {
		err = VerifyTranscript(s.pub, s.transcript)
	} else {
		err = VerifyTranscriptWithChallenge(s.pub, s.transcript, s.challenge)
	}
	if err != nil {
		s.state = StateRejected
		return err
	}
	s.state = StateVerified
	return nil
}

// challengeSeed hashes the public key fingerprint, the input batch and
// every candidate batch into the Fiat-Shamir seed.
func challengeSeed(pubFP []byte, input *Batch, commitments []*Batch) []byte {
	type seedIn struct {
		PK          []byte        `codec:"pk"`
		Input       batchRecord   `codec:"in"`
		Commitments []batchRecord `codec:"com"`
	}
	in := seedIn{PK: pubFP, Input: input.record()}
	for _, b := range commitments {
		in.Commitments = append(in.Commitments, b.record())
	}

	h := sha256.New()
	h.Write([]byte("shuffle challenge")) // domain separation
	h.Write(msgpack.Encode(in))
	return h.Sum(nil)
}

// challengeStream expands a seed into an unbounded pseudorandom byte
// stream by chaining hkdf expansions, re-keying with an expansion
// counter before each instance reaches hkdf's 255-block output limit.
// Read never fails.
type challengeStream struct {
	seed []byte
	next uint64
	cur  io.Reader
	left int
}

// expandBytes stays below hkdf's per-expansion output limit of
// 255 hash blocks.
const expandBytes = 255 * sha256.Size

func (s *challengeStream) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if s.left == 0 {
			info := make([]byte, 0, 32)
			info = append(info, []byte("candidate selection ")...)
			var counter [8]byte
			binary.BigEndian.PutUint64(counter[:], s.next)
			info = append(info, counter[:]...)
			s.cur = hkdf.New(sha256.New, s.seed, nil, info)
			s.left = expandBytes
			s.next++
		}
		want := len(p) - n
		if want > s.left {
			want = s.left
		}
		m, err := io.ReadFull(s.cur, p[n:n+want])
		n += m
		s.left -= m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// selectIndices expands the seed into a uniform selection of count
// distinct indices in [0, total), sorted ascending.
func selectIndices(seed []byte, total, count int) []int {
	stream := &challengeStream{seed: seed}

	perm := make([]int, total)
	for i := range perm {
		perm[i] = i
	}
	for i := total - 1; i > 0; i-- {
		j := uniformInt(stream, i+1)
		perm[i], perm[j] = perm[j], perm[i]
	}

	selected := append([]int(nil), perm[:count]...)
	sort.Ints(selected)
	return selected
}

// uniformInt draws a uniform value in [0, n) from the stream by
// rejection sampling.
func uniformInt(stream io.Reader, n int) int {
	max := ^uint32(0)
	limit := max - max%uint32(n)
	var buf [4]byte
	for {
		if _, err := io.ReadFull(stream, buf[:]); err != nil {
			// The challenge stream re-keys itself and never runs out; a
			// short read is a programming error, not an input condition.
			panic(fmt.Sprintf("mixnet: challenge stream exhausted: %v", err))
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v < limit {
			return int(v % uint32(n))
		}
	}
}

func checkChallenge(indices []int, t int) error {
	if len(indices) != t {
		return fmt.Errorf("challenge must open exactly %d candidates, got %d", t, len(indices))
	}
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= 2*t {
			return fmt.Errorf("challenge index %d outside [0, %d)", idx, 2*t)
		}
		if seen[idx] {
			return fmt.Errorf("duplicate challenge index %d", idx)
		}
		seen[idx] = true
	}
	return nil
}
