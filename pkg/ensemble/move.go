package ensemble

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// MoVEParams are the run parameters for majority voting. K <= 0 picks the
// subsample size automatically from the sample row count.
type MoVEParams struct {
	B int
	K int
}

// DefaultMoVEParams returns the standard majority-voting configuration.
func DefaultMoVEParams() MoVEParams {
	return MoVEParams{B: 200}
}

// MoVE selects the candidate trained most often across random subsamples,
// grouping equivalent candidates with the learner's duplicate predicate.
type MoVE struct {
	base
}

// NewMoVE builds a majority-voting selector. The learner must enable
// deduplication, since voting groups candidates by IsDuplicate.
func NewMoVE(learner Learner, opts ...Option) (*MoVE, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	b, err := newBase(learner, s)
	if err != nil {
		return nil, err
	}
	if !learner.EnableDeduplication() {
		return nil, fmt.Errorf("%w: majority voting requires a learner with deduplication enabled", ErrInvalidArgument)
	}
	return &MoVE{base: b}, nil
}

// Run performs majority voting with the default parameters.
func (m *MoVE) Run(sample *mat.Dense) (Candidate, error) {
	return m.RunWith(sample, DefaultMoVEParams())
}

// RunWith trains on params.B subsamples of size params.K and returns the
// winning candidate. An explicit K larger than the sample row count is
// clamped to the full sample with a warning, and the run collapses to a
// single subsample.
func (m *MoVE) RunWith(sample *mat.Dense, params MoVEParams) (Candidate, error) {
	if sample == nil {
		return nil, fmt.Errorf("%w: sample must not be nil", ErrInvalidArgument)
	}
	n, _ := sample.Dims()
	if n == 0 {
		return nil, fmt.Errorf("%w: sample must not be empty", ErrInvalidArgument)
	}
	B, k := params.B, params.K
	if B <= 0 {
		return nil, fmt.Errorf("%w: subsample count B=%d must be positive", ErrInvalidArgument, B)
	}
	switch {
	case k <= 0:
		k = autoSubsampleSize(n, dedupDivisor)
	case k > n:
		log.Warn().Int("k", k).Int("rows", n).Msg("subsample size exceeds sample rows, clamping to full sample with B=1")
		k = n
		B = 1
	}
	log.Debug().Int("B", B).Int("k", k).Int("rows", n).Msg("starting majority voting")

	refs, err := m.learnOnSubsamples(sample, k, B)
	if err != nil {
		return nil, err
	}
	defer m.cleanup(refs)

	return m.vote(refs)
}

// voteCluster tracks one group of mutually duplicate candidates.
type voteCluster struct {
	representative Candidate
	count          int
}

// vote groups the resolved candidates into duplicate clusters in arrival
// order and returns the representative of the most frequent one. A cluster
// must strictly exceed the running maximum to take the lead, so on ties the
// earliest cluster to reach the winning count keeps it.
func (m *MoVE) vote(refs []resultRef) (Candidate, error) {
	var clusters []voteCluster
	best, bestCount := -1, 0
	for i, ref := range refs {
		candidate, err := m.resolve(ref)
		if err != nil {
			return nil, err
		}
		if len(candidate) == 0 {
			return nil, fmt.Errorf("%w: empty candidate at subsample %d", ErrLearning, i)
		}

		joined := -1
		for c := range clusters {
			if m.learner.IsDuplicate(candidate, clusters[c].representative) {
				joined = c
				break
			}
		}
		if joined < 0 {
			clusters = append(clusters, voteCluster{representative: candidate, count: 1})
			joined = len(clusters) - 1
		} else {
			clusters[joined].count++
		}
		if clusters[joined].count > bestCount {
			bestCount = clusters[joined].count
			best = joined
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: majority voting saw no candidates", ErrNoResults)
	}
	log.Debug().Int("clusters", len(clusters)).Int("votes", bestCount).Msg("majority voting finished")
	return clusters[best].representative, nil
}

const (
	dedupDivisor   = 200
	noDedupDivisor = 2
	minSubsample   = 30
)

// autoSubsampleSize picks k = min(max(30, n/divisor), n).
func autoSubsampleSize(n, divisor int) int {
	return min(max(minSubsample, n/divisor), n)
}
