// Package ensemble selects a single best candidate from learners trained on
// random subsamples of a dataset, either by majority voting (MoVE) or by
// two-phase epsilon-optimal voting (ROVE).
package ensemble

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Candidate is one learner output: an ordered vector of real numbers. The
// selectors treat it as opaque apart from its size, duplicate equality and
// serialized form.
type Candidate []float64

// Learner is the training and scoring contract consumed by both selectors.
// Implementations must tolerate concurrent calls to Learn and Objective,
// since both run from parallel workers over a shared read-only sample.
type Learner interface {
	// Learn trains on the given sample and returns one candidate.
	Learn(sample *mat.Dense) (Candidate, error)

	// Objective scores a candidate on every row of the sample, returning
	// exactly one value per row.
	Objective(candidate Candidate, sample *mat.Dense) ([]float64, error)

	// Minimize reports whether smaller objective values are better.
	Minimize() bool

	// EnableDeduplication reports whether candidates can be compared with
	// IsDuplicate. Required by MoVE, optional for ROVE.
	EnableDeduplication() bool

	// IsDuplicate reports whether two candidates represent the same
	// underlying solution.
	IsDuplicate(a, b Candidate) bool
}

// CandidateCodec customizes the wire format of persisted candidates. A
// learner that implements it overrides the default binary encoding used by
// the result store: an 8-byte little-endian element count followed by the
// IEEE-754 little-endian float64 values.
type CandidateCodec interface {
	MarshalCandidate(c Candidate) ([]byte, error)
	UnmarshalCandidate(data []byte) (Candidate, error)
}

// codecFor returns the learner's own codec when it implements
// CandidateCodec, else the default binary codec.
func codecFor(learner Learner) CandidateCodec {
	if codec, ok := learner.(CandidateCodec); ok {
		return codec
	}
	return binaryCodec{}
}

const candidateLenSize = 8

type binaryCodec struct{}

func (binaryCodec) MarshalCandidate(c Candidate) ([]byte, error) {
	buf := make([]byte, candidateLenSize+8*len(c))
	binary.LittleEndian.PutUint64(buf, uint64(len(c)))
	for i, v := range c {
		binary.LittleEndian.PutUint64(buf[candidateLenSize+8*i:], math.Float64bits(v))
	}
	return buf, nil
}

func (binaryCodec) UnmarshalCandidate(data []byte) (Candidate, error) {
	if len(data) < candidateLenSize {
		return nil, fmt.Errorf("candidate payload of %d bytes is too short", len(data))
	}
	count := binary.LittleEndian.Uint64(data)
	payload := data[candidateLenSize:]
	if len(payload)%8 != 0 || count != uint64(len(payload))/8 {
		return nil, fmt.Errorf("declared length %d does not match %d payload bytes", count, len(payload))
	}
	c := make(Candidate, count)
	for i := range c {
		c[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[8*i:]))
	}
	return c, nil
}
